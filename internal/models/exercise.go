package models

// Exercise is read-only catalog reference data, not owned by any user.
type Exercise struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MuscleGroup    string `json:"muscleGroup"`
	Equipment      string `json:"equipment"`
	IsBodyweight   bool   `json:"isBodyweight"`
	InstructionURL string `json:"instructionUrl,omitempty"`
	Description    string `json:"description,omitempty"`
}
