package appErrors

import "fmt"

// ErrJobNotFound is a sentinel error
type ErrJobNotFound struct {
	JobID string
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("dm job %s not found", e.JobID)
}

func NewJobNotFound(id string) error {
	return &ErrJobNotFound{JobID: id}
}

// ErrWorkflowNotFound is a sentinel error
type ErrWorkflowNotFound struct {
	WorkflowID string
}

func (e *ErrWorkflowNotFound) Error() string {
	return fmt.Sprintf("workflow %s not found", e.WorkflowID)
}

func NewWorkflowNotFound(id string) error {
	return &ErrWorkflowNotFound{WorkflowID: id}
}

// ErrWorkspaceNotFound is a sentinel error
type ErrWorkspaceNotFound struct {
	TeamID string
}

func (e *ErrWorkspaceNotFound) Error() string {
	return fmt.Sprintf("workspace %s not found", e.TeamID)
}

func NewWorkspaceNotFound(teamID string) error {
	return &ErrWorkspaceNotFound{TeamID: teamID}
}

// ErrMissingSenderToken means neither the workflow/job sender nor the
// workspace default resolved to a credential.
type ErrMissingSenderToken struct {
	TeamID string
}

func (e *ErrMissingSenderToken) Error() string {
	return fmt.Sprintf("workspace %s has no usable sender token", e.TeamID)
}

func NewMissingSenderToken(teamID string) error {
	return &ErrMissingSenderToken{TeamID: teamID}
}
