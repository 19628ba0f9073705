package installer

import "testing"

func TestIsSafeIdentifier(t *testing.T) {
	cases := map[string]bool{
		"users":       true,
		"user_2":      true,
		"_private":    true,
		"2users":      false,
		"user-2":      false,
		"user name":   false,
		"":            false,
		"extract_key": true,
	}
	for name, want := range cases {
		if got := IsSafeIdentifier(name); got != want {
			t.Errorf("IsSafeIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestReferenceTablePhysicalName(t *testing.T) {
	got := ReferenceTablePhysicalName("11111111-2222-3333-4444-555555555555", "users")
	want := "ref_11111111_2222_3333_4444_555555555555_users"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestUDFPhysicalName(t *testing.T) {
	got := UDFPhysicalName("11111111-2222-3333-4444-555555555555", "extract_jira_key")
	want := "udf_11111111_2222_3333_4444_555555555555_extract_jira_key"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
