// Package services implements the business logic of the gallery bot: the
// multi-step collection flow, the moderation workflow, and the abuse guard.
// This file centralizes service-level error values so they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing Arabic copy is performed at the bot
// dispatcher layer, never here.
package services

import "errors"

var (
	// ErrNoActiveFlow is returned when flow input arrives for a user with
	// no session in progress.
	ErrNoActiveFlow = errors.New("no active flow")

	// ErrNotAwaitingPhoto is returned when a photo arrives while the
	// session expects a text answer.
	ErrNotAwaitingPhoto = errors.New("session is not awaiting a photo")

	// ErrInvalidDate is returned when a date answer matches neither
	// accepted pattern or names an impossible calendar day.
	ErrInvalidDate = errors.New("invalid date")

	// ErrDuplicatePendingRequest is returned when a submission targets an
	// entity that already has a pending request awaiting review.
	ErrDuplicatePendingRequest = errors.New("a pending request already exists for this target")

	// ErrRequestNotFound indicates the submission request does not exist
	// or is not accessible to the current user.
	ErrRequestNotFound = errors.New("request not found")

	// ErrMartyrNotFound indicates the published record does not exist or
	// is not accessible to the current user.
	ErrMartyrNotFound = errors.New("martyr not found")

	// ErrRequestNotPending is returned when a decision or in-place update
	// is attempted on a request that is no longer pending.
	ErrRequestNotPending = errors.New("request is not pending")

	// ErrImageUpload is returned when persisting the submitted photo to
	// the image host fails. The flow stays at the photo step so the user
	// can retry.
	ErrImageUpload = errors.New("image upload failed")

	// ErrMissingImage is returned when an edit flow skips the photo step
	// but no prior image exists on the target.
	ErrMissingImage = errors.New("no existing image to keep")
)
