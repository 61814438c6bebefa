package domain

import "errors"

// ErrSourceUnavailable a quote or FX provider could not answer at all.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrRateUnavailable every FX source and the last-known cache failed for a pair.
var ErrRateUnavailable = errors.New("fx rate unavailable")

// ErrRefreshInProgress a refresh was requested while another one is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ErrInvalidHolding a manual entry failed validation and was not written.
var ErrInvalidHolding = errors.New("invalid holding")

// ErrStoreWriteFailure the snapshot could not be committed.
var ErrStoreWriteFailure = errors.New("snapshot store write failed")

// ErrNoHoldings a refresh was requested with nothing to value.
var ErrNoHoldings = errors.New("no holdings configured")

// ErrHoldingNotFound an edit targeted an unknown holding id.
var ErrHoldingNotFound = errors.New("holding not found")

// ErrReportingCurrencyMismatch the store was created for another reporting currency.
var ErrReportingCurrencyMismatch = errors.New("reporting currency mismatch")

// ErrUnsupportedFormat an export was requested in an unknown format.
var ErrUnsupportedFormat = errors.New("unsupported export format")
