package repository

import "errors"

var (
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrDuplicateSubscription = errors.New("subscription already exists for this contact and product")
	ErrNoRunRecorded         = errors.New("no run recorded")
	ErrFetchFailed           = errors.New("static fetch failed")
	ErrRenderFailed          = errors.New("render failed")
	ErrRendererDisabled      = errors.New("renderer disabled")
)
