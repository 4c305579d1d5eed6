package models

// PromptBankEntry is one case prompt in the safety catalog. Inactive entries
// are never selected.
type PromptBankEntry struct {
	ID       string   `json:"id"`
	Genre    string   `json:"genre"`
	Prompt   string   `json:"prompt"`
	CaseType CaseType `json:"caseType"`
	Active   bool     `json:"active"`
}
