package classify

import "testing"

func TestRuleBasedSensitivityDetector_PIIPatterns(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()

	tests := []string{
		"contact me at jane.doe@example.com",
		"call 555-123-4567 for details",
		"ssn on file is 123-45-6789",
	}
	for _, q := range tests {
		got := d.Detect(q)
		if got.Level != SensitivityRestricted {
			t.Errorf("Detect(%q).Level = %s, want restricted", q, got.Level)
		}
		if got.Confidence != 0.98 {
			t.Errorf("Detect(%q).Confidence = %f, want 0.98", q, got.Confidence)
		}
	}
}

func TestRuleBasedSensitivityDetector_RestrictedKeyword(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()
	got := d.Detect("pull the patient medical history")
	if got.Level != SensitivityRestricted || got.Confidence != 0.90 {
		t.Errorf("got %+v, want restricted @ 0.90", got)
	}
}

func TestRuleBasedSensitivityDetector_ConfidentialKeyword(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()
	got := d.Detect("pull the revenue numbers for hr")
	if got.Level != SensitivityConfidential || got.Confidence != 0.82 {
		t.Errorf("got %+v, want confidential @ 0.82", got)
	}
}

func TestRuleBasedSensitivityDetector_InternalKeyword(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()
	got := d.Detect("what's on the roadmap for next year")
	if got.Level != SensitivityInternal || got.Confidence != 0.75 {
		t.Errorf("got %+v, want internal @ 0.75", got)
	}
}

func TestRuleBasedSensitivityDetector_Public(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()
	got := d.Detect("what is the weather today")
	if got.Level != SensitivityPublic || got.Confidence != 0.88 {
		t.Errorf("got %+v, want public @ 0.88", got)
	}
}

func TestRuleBasedSensitivityDetector_PrecedenceOrder(t *testing.T) {
	d := NewRuleBasedSensitivityDetector()
	// contains both a restricted and confidential keyword; restricted wins.
	got := d.Detect("medical records and hr revenue report")
	if got.Level != SensitivityRestricted {
		t.Errorf("got level %s, want restricted to take precedence", got.Level)
	}
}
