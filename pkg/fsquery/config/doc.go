/*
Package config loads fsquery settings from YAML or JSON files.

Config is a thin typed view over the decoded document. Accessors take a
default and never fail, and dotted keys reach into nested sections:

	cfg, err := config.FromFile("fsquery.yaml")
	workers := cfg.Int("workers", 4)
	skip := cfg.StringSlice("scan.skip_dirs", nil)

Settings gathers the keys the command line tool understands. Flags given on
the command line override whatever Load returns.
*/
package config
