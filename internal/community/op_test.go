package community

import "testing"

func TestParseOpRequiredKeysExactMatch(t *testing.T) {
	cases := []struct {
		name    string
		action  string
		params  map[string]any
		wantErr bool
	}{
		{
			name:   "setRole valid",
			action: ActionSetRole,
			params: map[string]any{"community": "hive-123456", "account": "bob", "role": "mod"},
		},
		{
			name:    "setRole missing key",
			action:  ActionSetRole,
			params:  map[string]any{"community": "hive-123456", "account": "bob"},
			wantErr: true,
		},
		{
			name:    "setRole extra key",
			action:  ActionSetRole,
			params:  map[string]any{"community": "hive-123456", "account": "bob", "role": "mod", "extra": "x"},
			wantErr: true,
		},
		{
			name:    "setRole invalid role",
			action:  ActionSetRole,
			params:  map[string]any{"community": "hive-123456", "account": "bob", "role": "wizard"},
			wantErr: true,
		},
		{
			name:   "subscribe valid",
			action: ActionSubscribe,
			params: map[string]any{"community": "hive-123456"},
		},
		{
			name:    "unknown action",
			action:  "doSomething",
			params:  map[string]any{},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOp(tc.action, tc.params)
			if tc.wantErr && err == nil {
				t.Fatalf("ParseOp(%s) = nil error, want error", tc.name)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ParseOp(%s) error: %v", tc.name, err)
			}
		})
	}
}

func TestParseOpNotesValidation(t *testing.T) {
	longNotes := make([]byte, 121)
	for i := range longNotes {
		longNotes[i] = 'x'
	}

	cases := []struct {
		name    string
		notes   string
		wantErr bool
	}{
		{"ok", "looks good", false},
		{"too long", string(longNotes), true},
		{"blank after trim", "   ", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOp(ActionMutePost, map[string]any{
				"community": "hive-123456", "account": "bob", "permlink": "my-post", "notes": tc.notes,
			})
			if tc.wantErr && err == nil {
				t.Fatalf("ParseOp notes=%q = nil error, want error", tc.notes)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ParseOp notes=%q error: %v", tc.notes, err)
			}
		})
	}
}

func TestParseOpSettingsAllowedKeys(t *testing.T) {
	_, err := ParseOp(ActionUpdateSettings, map[string]any{
		"community": "hive-123456",
		"settings":  map[string]any{"title": "My Community", "nsfw": "false"},
	})
	if err != nil {
		t.Fatalf("expected valid settings, got error: %v", err)
	}

	_, err = ParseOp(ActionUpdateSettings, map[string]any{
		"community": "hive-123456",
		"settings":  map[string]any{"not_allowed": "x"},
	})
	if err == nil {
		t.Fatalf("expected error for disallowed settings key")
	}
}

func TestParseOpTitleLength(t *testing.T) {
	_, err := ParseOp(ActionSetUserTitle, map[string]any{
		"community": "hive-123456", "title": "short",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	longTitle := ""
	for i := 0; i < 40; i++ {
		longTitle += "x"
	}
	_, err = ParseOp(ActionSetUserTitle, map[string]any{
		"community": "hive-123456", "title": longTitle,
	})
	if err == nil {
		t.Fatalf("expected error for too-long title")
	}

	exactlyTitle := ""
	for i := 0; i < 32; i++ {
		exactlyTitle += "x"
	}
	_, err = ParseOp(ActionSetUserTitle, map[string]any{
		"community": "hive-123456", "title": exactlyTitle,
	})
	if err != nil {
		t.Fatalf("expected 32-char title to be allowed, got: %v", err)
	}
}
