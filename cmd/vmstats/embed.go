package main

import _ "embed"

// embeddedConfig holds the YAML configuration embedded at build time. It sits
// between the defaults and the config file in precedence; build scripts may
// overwrite embed_config.yaml before compiling.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
