package service

import "errors"

var (
	// ErrUnknownRound is returned for a round id that is not part of the exam layout.
	ErrUnknownRound = errors.New("unknown round")
	// ErrUnknownSession is returned for a session id that is not part of the exam layout.
	ErrUnknownSession = errors.New("unknown session")
	// ErrRoundNotFound means the student has no session record at all for the round.
	ErrRoundNotFound = errors.New("no data for round")
	// ErrStoreUnavailable wraps any failure of the external store. The engine does not retry.
	ErrStoreUnavailable = errors.New("result store unavailable")
)
