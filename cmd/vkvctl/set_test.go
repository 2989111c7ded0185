package main

import "testing"

func TestSetCommand(t *testing.T) {
	jsonOut = false
	seedArgs = nil
	defer func() { seedArgs = nil }()

	output, err := captureOutput(t, func() error {
		return runSet("a", "1")
	})
	if err != nil {
		t.Fatalf("runSet() error = %v\nOutput: %s", err, output)
	}
	assertContains(t, output, []string{"committed at version 1"})
}

func TestSetCommand_JSON(t *testing.T) {
	jsonOut = true
	seedArgs = nil
	defer func() { jsonOut = false }()

	output, err := captureOutput(t, func() error {
		return runSet("a", "1")
	})
	if err != nil {
		t.Fatalf("runSet() error = %v\nOutput: %s", err, output)
	}
	assertJSON(t, output)
	assertContains(t, output, []string{`"key": "a"`, `"value": "1"`})
}
