// Package harness runs end-to-end rename scenarios against a scratch
// directory tree and a fresh store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules:                      # optional, defaults to the seeded rules
//	  separator: "_"
//	  collapse: [" ", "-"]
//	  terms: {"&": "_and_"}
//	tree:                       # entries to create; a trailing "/" makes a directory
//	  - "docs/"
//	  - "docs/My File - Draft.txt"
//	steps:
//	  - op: rename              # rename | reverse | mv
//	    paths: ["docs"]
//	    walk: true              # collect entries below paths
//	    kind: file              # file | directory
//	  - op: reverse
//	    paths: ["docs/My_File_Draft.txt"]
//	    chain: true
//	    expect:
//	      error: RENAME_FAILED  # required error code for the step
//	assertions:
//	  - type: tree
//	    entries: ["docs/", "docs/My File - Draft.txt"]
//	  - type: records
//	    count: 0
//
// # Assertion Types
//
//   - tree: the directory listing equals entries exactly
//   - exists / missing: a single path is (or is not) present
//   - records: the number of live provenance records
//   - no_plaintext: none of names appears in the provenance table,
//     raw or hex encoded
//
// # Deterministic Testing
//
// Every step is a separate run with run id "<run_id>-<step>" and a
// deterministic clock, so traces compare byte for byte against golden files.
package harness
