// Package cli wires together the Cobra command tree for the codeaudit binary.
//
// It defines the root command and its subcommands (analyze, models, config,
// cache, version), binds flags onto viper config keys, builds the zap logger
// and maps failures onto exit codes: 2 for usage and config errors, 3 when
// the backend rejects the credentials, 4 for runtime failures such as an
// unwritable report directory.
package cli
