// Package openai is a client for the OpenAI and Azure OpenAI HTTP APIs.
//
// A Client is built from a Config describing the backend:
//
//	client, err := openai.NewClient(openai.NewOpenAIConfig())
//
//	azure, err := openai.NewAzureConfig(
//	    openai.WithAPIBase("https://my-resource.openai.azure.com"),
//	    openai.WithDeploymentID("gpt-4o"),
//	    openai.WithAPIVersion("2024-06-01"),
//	)
//
// Endpoints are grouped by resource. Non-streaming calls return a typed
// response; streaming calls return an sse.Stream that yields chunks as they
// arrive and must be drained or closed:
//
//	stream, err := client.Chat().CreateStream(ctx, openai.ChatCompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []openai.ChatMessage{{Role: openai.RoleUser, Content: "Hello"}},
//	})
//	for chunk, err := range stream.All(ctx) {
//	    ...
//	}
//
// Transient failures (connection errors, 429 and 5xx) are retried with
// exponential backoff. Every failure is an *errors.AppError; inspect it with
// errors.KindOf or errors.AsAPIError.
package openai
