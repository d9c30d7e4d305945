// Package config loads settings structs from a YAML file, a .env file and
// the process environment.
//
// Values are layered: the YAML file is read first, the .env file is loaded
// into the environment (without overriding variables that are already set),
// and every mapstructure key of the target struct is bound to an environment
// variable named after it (openai.api_key -> OPENAI_API_KEY).
//
// # Usage
//
//	var settings openai.Settings
//	err := config.LoadConfig("openaikit", &settings,
//	    config.WithEnvBinding("azure.api_key", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"),
//	)
package config
