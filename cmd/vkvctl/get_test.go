package main

import "testing"

func TestGetCommand(t *testing.T) {
	tests := []struct {
		name        string
		seed        []string
		key         string
		json        bool
		wantContain []string
	}{
		{
			name:        "found key",
			seed:        []string{"a=1"},
			key:         "a",
			wantContain: []string{"1"},
		},
		{
			name:        "missing key",
			seed:        []string{"a=1"},
			key:         "b",
			wantContain: []string{"not found"},
		},
		{
			name:        "found key as JSON",
			seed:        []string{"a=1"},
			key:         "a",
			json:        true,
			wantContain: []string{`"found": true`, `"value": "1"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seedArgs = tt.seed
			jsonOut = tt.json
			defer func() { seedArgs = nil; jsonOut = false }()

			output, err := captureOutput(t, func() error {
				return runGet(tt.key)
			})
			if err != nil {
				t.Fatalf("runGet() error = %v\nOutput: %s", err, output)
			}
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}
