package routing

import "testing"

func TestDepartment(t *testing.T) {
	cases := []struct {
		category string
		want     string
	}{
		{"Lost Password", "IT"},
		{"Core Banking issue", "Operations"},
		{"xyz", "IT"},
		{"", "IT"},
		{"Network", "IT"},
		{"MOBILE APP crash", "Digital Banking"},
		{"Teller cash drawer", "Operations"},
		{"Compliance report", "AML/CFT"},
		{"Loan disbursement", "Loan"},
		{"Digital Banking login", "Digital Banking"},
	}
	for _, tc := range cases {
		if got := Department(tc.category); got != tc.want {
			t.Fatalf("Department(%q): want %q got %q", tc.category, tc.want, got)
		}
	}
}

func TestDepartmentFirstRuleWins(t *testing.T) {
	// "password" precedes "digital banking" in the table.
	if got := Department("digital banking password reset"); got != "IT" {
		t.Fatalf("want IT got %s", got)
	}
	// "software" precedes "loan".
	if got := Department("loan software"); got != "IT" {
		t.Fatalf("want IT got %s", got)
	}
}

func TestDepartmentDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		if Department("teller compliance") != "Operations" {
			t.Fatalf("routing not deterministic")
		}
	}
}

func TestCustomRouter(t *testing.T) {
	r := New([]Rule{{"card", "Cards"}}, "General")
	if got := r.Department("Card blocked"); got != "Cards" {
		t.Fatalf("want Cards got %s", got)
	}
	if got := r.Department("other"); got != "General" {
		t.Fatalf("want General got %s", got)
	}
}

func TestDepartments(t *testing.T) {
	got := Default().Departments()
	want := []string{"IT", "Digital Banking", "Operations", "AML/CFT", "Loan"}
	if len(got) != len(want) {
		t.Fatalf("departments: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("departments[%d]: want %s got %s", i, want[i], got[i])
		}
	}
}
