// Package routing assigns a ticket to its owning department from the
// free-text category chosen by the requester.
package routing

import "strings"

// DefaultDepartment owns every category no rule matches.
const DefaultDepartment = "IT"

// Rule maps a category keyword to a department.
type Rule struct {
	Keyword    string
	Department string
}

// Rules are evaluated in order; the first keyword found in the category wins.
var Rules = []Rule{
	{"hardware", "IT"},
	{"software", "IT"},
	{"network", "IT"},
	{"password", "IT"},
	{"authentication", "IT"},
	{"digital banking", "Digital Banking"},
	{"mobile app", "Digital Banking"},
	{"core banking", "Operations"},
	{"teller", "Operations"},
	{"compliance", "AML/CFT"},
	{"loan", "Loan"},
}

// Router is a reusable, ordered rule table.
type Router struct {
	rules    []Rule
	fallback string
}

func New(rules []Rule, fallback string) *Router {
	return &Router{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// Default returns the banking helpdesk routing table.
func Default() *Router {
	return New(Rules, DefaultDepartment)
}

func (r *Router) Department(category string) string {
	lower := strings.ToLower(category)
	for _, rule := range r.rules {
		if strings.Contains(lower, rule.Keyword) {
			return rule.Department
		}
	}
	return r.fallback
}

// Departments lists the distinct departments in rule order, fallback first.
func (r *Router) Departments() []string {
	seen := map[string]bool{r.fallback: true}
	out := []string{r.fallback}
	for _, rule := range r.rules {
		if !seen[rule.Department] {
			seen[rule.Department] = true
			out = append(out, rule.Department)
		}
	}
	return out
}

// Department routes category with the default table.
func Department(category string) string {
	return Default().Department(category)
}
