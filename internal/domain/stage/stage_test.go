package stage

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    Stage
		wantErr bool
	}{
		{"", FirstDraft, false},
		{"first_draft", FirstDraft, false},
		{"First draft", FirstDraft, false},
		{"  FINAL DRAFT ", FinalDraft, false},
		{"Rewritten/Updated version", Rewritten, false},
		{"Publisher asked for feedback", FeedbackRequested, false},
		{"feedback", FeedbackRequested, false},
		{"final", FinalDraft, false},
		{"published", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknown) {
					t.Fatalf("Normalize(%q) err = %v, ожидается ErrUnknown", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, хотели %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckChange(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		from    Stage
		to      Stage
		wantErr error
	}{
		{"free: назад разрешено", PolicyFree, FinalDraft, FirstDraft, nil},
		{"forward: вперёд", PolicyForward, FirstDraft, FeedbackRequested, nil},
		{"forward: та же стадия", PolicyForward, Rewritten, Rewritten, nil},
		{"forward: назад запрещено", PolicyForward, FinalDraft, Rewritten, ErrBackward},
		{"forward: из пустой стадии", PolicyForward, Stage(""), FirstDraft, nil},
		{"неизвестная целевая", PolicyFree, FirstDraft, Stage("x"), ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.CheckChange(tt.from, tt.to)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CheckChange: неожиданная ошибка %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckChange err = %v, хотели %v", err, tt.wantErr)
			}
		})
	}
}

func TestLabelsAndOrder(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("All() = %d стадий, ожидается 4", len(all))
	}
	for i, s := range all {
		if s.Index() != i {
			t.Errorf("%s.Index() = %d, хотели %d", s, s.Index(), i)
		}
		if s.Label() == "" {
			t.Errorf("%s.Label() пуст", s)
		}
	}
	if FirstDraft.Label() != "First draft" {
		t.Errorf("FirstDraft.Label() = %q", FirstDraft.Label())
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyFree {
		t.Errorf("ParsePolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePolicy("forward"); err != nil || p != PolicyForward {
		t.Errorf("ParsePolicy(forward) = %q, %v", p, err)
	}
	if _, err := ParsePolicy("auto"); err == nil {
		t.Error("ParsePolicy(auto): ожидалась ошибка")
	}
}
