package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/election-scraper/internal/entity"
)

var (
	// ErrSourceUnreachable means the index page could not be fetched.
	ErrSourceUnreachable = errors.New("index page is unreachable")
	// ErrNoEntities means the index page lists no municipalities.
	ErrNoEntities = errors.New("no entities found on index page")
	// ErrLedgerDisabled is returned when skipped entities are requested but no ledger is configured.
	ErrLedgerDisabled = errors.New("skip ledger is not configured")
	// ErrRunStoreDisabled is returned when a stored run is requested but no queryable store is configured.
	ErrRunStoreDisabled = errors.New("no run store is configured")
)

// FatalSourceError aborts a whole run. Reason is ErrSourceUnreachable or ErrNoEntities.
type FatalSourceError struct {
	URL    string
	Reason error
	Cause  error
}

func (e *FatalSourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Reason, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Reason, e.URL)
}

func (e *FatalSourceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

// SkippedEntityError is the failure to fetch one detail page. It never ends a
// run; the entity is left out and listed in the run report.
type SkippedEntityError struct {
	Ref entity.EntityRef
	Err error
}

func (e *SkippedEntityError) Error() string {
	return fmt.Sprintf("entity %s (%s) skipped: %v", e.Ref.Code, e.Ref.Name, e.Err)
}

func (e *SkippedEntityError) Unwrap() error {
	return e.Err
}

// Record converts the error into its report entry.
func (e *SkippedEntityError) Record(at time.Time) entity.SkippedEntity {
	return entity.SkippedEntity{
		Code:      e.Ref.Code,
		Name:      e.Ref.Name,
		DetailURL: e.Ref.DetailURL,
		Reason:    e.Err.Error(),
		SkippedAt: at,
	}
}
