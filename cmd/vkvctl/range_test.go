package main

import "testing"

func TestRangeCommand(t *testing.T) {
	seedArgs = []string{"a=1", "b=2", "c=3"}
	jsonOut = false
	rangeLimit = 0
	rangeReverse = false
	defer func() { seedArgs = nil }()

	output, err := captureOutput(t, func() error {
		return runRange("a", "c")
	})
	if err != nil {
		t.Fatalf("runRange() error = %v\nOutput: %s", err, output)
	}
	assertContains(t, output, []string{"a=1", "b=2"})
}

func TestRangeCommand_Limit(t *testing.T) {
	seedArgs = []string{"a=1", "b=2", "c=3"}
	jsonOut = false
	rangeLimit = 1
	rangeReverse = false
	defer func() { seedArgs = nil; rangeLimit = 0 }()

	output, err := captureOutput(t, func() error {
		return runRange("a", "z")
	})
	if err != nil {
		t.Fatalf("runRange() error = %v\nOutput: %s", err, output)
	}
	assertContains(t, output, []string{"a=1"})
}
