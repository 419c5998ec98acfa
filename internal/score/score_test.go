package score

import "testing"

func TestScoreKeywordTiers(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		text string
		min  int
	}{
		{"ordinary keyword", "a new ransomware campaign targets hospitals", 1},
		{"super keyword", "patch now: CVE-2024-1234 under active use", 3},
		{"both tiers", "ransomware gang uses CVE-2024-1234 in attacks", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.text); got < tt.min {
				t.Errorf("Score(%q) = %d, want >= %d", tt.text, got, tt.min)
			}
		})
	}
}

func TestScoreZeroMeansIrrelevant(t *testing.T) {
	s := New()
	if got := s.Score("quarterly earnings beat expectations on strong retail demand"); got != 0 {
		t.Errorf("expected score 0, got %d", got)
	}
}

func TestScoreDiacriticsFolded(t *testing.T) {
	s := New()
	// Keyword list carries "sécurité"; unaccented text must still match.
	if got := s.Score("la securite des reseaux reste fragile"); got == 0 {
		t.Error("expected unaccented text to match accented keyword")
	}
	// And the accented form matches too.
	if got := s.Score("la sécurité des réseaux reste fragile"); got == 0 {
		t.Error("expected accented text to match")
	}
}

func TestScoreCountsEachKeywordOnce(t *testing.T) {
	s := NewWithKeywords([]string{"ransomware"}, nil)
	if got := s.Score("ransomware ransomware ransomware"); got != 1 {
		t.Errorf("expected presence-only count 1, got %d", got)
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Sécurité", "securite"},
		{"VULNÉRABILITÉ", "vulnerabilite"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
