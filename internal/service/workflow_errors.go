package service

import "errors"

// Workflow error taxonomy. Every transition either fully commits or returns one
// of these; handlers translate them to HTTP statuses with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid transition for current status")
	ErrAccessDenied      = errors.New("user is not assigned to this stage")
	ErrForbidden         = errors.New("operation requires an elevated role")
	ErrAlreadyTerminal   = errors.New("product is already in a terminal status")
	ErrNoPreviousStage   = errors.New("cannot rework from the first production stage")
	ErrDataIntegrity     = errors.New("product has no stage events")
	ErrCatalogFrozen     = errors.New("stage catalog is frozen for this product type")
	ErrTransient         = errors.New("transient storage failure")
)

var workflowErrors = []error{
	ErrNotFound, ErrInvalidTransition, ErrAccessDenied, ErrForbidden,
	ErrAlreadyTerminal, ErrNoPreviousStage, ErrDataIntegrity, ErrCatalogFrozen,
}

// classify keeps domain errors as-is and tags everything else (deadlock,
// connection loss) as retryable. A rejected transition is a correctness signal
// and is never retried; a transient failure may be.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range workflowErrors {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return errors.Join(ErrTransient, err)
}
