// Package config provides configuration management for oauthprompt.
//
// Configuration is loaded from a single directory. The default directory is
// ~/.config/oauthprompt, but commands accept a custom one with --config-path.
//
// # Loading Order
//
//  1. Built-in defaults (GetDefaultConfig)
//  2. config.yaml in the configuration directory, if present
//  3. Environment variables with the OAUTHPROMPT_ prefix
//
// Relative storage paths are resolved against the configuration directory.
//
// # File Format
//
//	server:
//	  host: localhost
//	  port: 3978
//	  publicUrl: http://localhost:3978
//	  callbackPath: /oauth/callback
//	storage:
//	  driver: sqlite        # memory | file | sqlite
//	  path: oauthprompt.db
//	prompt:
//	  connectionName: github
//	  timeout: 15m
//	  endOnInvalidMessage: false
//	  magicCodeTTL: 10m
//	connections:
//	  - name: github
//	    clientId: Iv1.abc
//	    clientSecret: ...
//	    authUrl: https://github.com/login/oauth/authorize
//	    tokenUrl: https://github.com/login/oauth/access_token
//	    scopes: [repo]
//
// # Environment Overrides
//
// Scalar settings can be overridden from the environment, for example
// OAUTHPROMPT_SERVER_PORT, OAUTHPROMPT_STORAGE_DRIVER or
// OAUTHPROMPT_PROMPT_TIMEOUT. Connection credentials use the connection name
// in upper case with non-alphanumerics replaced by underscores:
// OAUTHPROMPT_CONNECTION_GITHUB_CLIENT_SECRET.
//
// # Validation and Reload
//
// Validate collects every problem into a ConfigurationErrorCollection so the
// check command can report them all at once. Watch reloads the file when it
// changes and hands valid configurations to a callback; invalid edits are
// logged and ignored.
package config
