package models

import "fmt"

// CompareRequest asks for pairwise scores over a set of documents.
type CompareRequest struct {
	Documents []DocumentInput `json:"documents"`
	Threshold float64         `json:"threshold,omitempty"`
	Save      bool            `json:"save,omitempty"`
}

// Validate ensures at least two documents with unique names.
func (r *CompareRequest) Validate() error {
	if len(r.Documents) < 2 {
		return fmt.Errorf("at least two documents are required (got %d)", len(r.Documents))
	}
	seen := make(map[string]struct{}, len(r.Documents))
	for i, d := range r.Documents {
		if d.Name == "" {
			return fmt.Errorf("document %d: name cannot be empty", i)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("document %d: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return validateThreshold(r.Threshold)
}

// DedupeRequest asks for cluster-and-collapse over a list of texts.
type DedupeRequest struct {
	Texts     []string `json:"texts"`
	Threshold float64  `json:"threshold,omitempty"`
	Policy    string   `json:"policy,omitempty"`
	Save      bool     `json:"save,omitempty"`
}

// Validate ensures the request has texts and a usable threshold.
func (r *DedupeRequest) Validate() error {
	if len(r.Texts) == 0 {
		return fmt.Errorf("texts cannot be empty")
	}
	return validateThreshold(r.Threshold)
}

// DedupeResponse carries the kept texts alongside the run report.
type DedupeResponse struct {
	Kept   []string   `json:"kept"`
	Report *RunReport `json:"report"`
}

// threshold 0 means "use the configured default".
func validateThreshold(t float64) error {
	if t == 0 {
		return nil
	}
	if t < 0 || t >= 1 {
		return fmt.Errorf("threshold must be in (0, 1), got %v", t)
	}
	return nil
}
