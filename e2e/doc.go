// Package e2e holds one generated Go test per scenario. The tests drive a
// real Chrome against the configured quiz install:
//
//	go test -tags e2e ./e2e -run TestLoginSqlInjection
//
// QUIZCHECK_CONFIG points the tests at a config file.
package e2e

//go:generate go run ../cmd/quizcheck generate --dir . --disable-log
