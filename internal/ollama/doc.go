// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is the model gateway: it sends one prompt to a local
// model server's generate endpoint and returns the reply text or a
// classified error.
//
// # Key Types
//
//   - Client: HTTP client for the generate endpoint
//   - RequestConfig: endpoint, model name, temperature and token limit for one call
//   - Reply: successful result with the reply text and generation metrics
//   - GatewayError: failure with a Kind (ConnectionFailed, HTTPStatus, MalformedResponse)
//   - Exchange: request/response trace for debug echo
//
// # Usage
//
//	client := ollama.NewClient()
//	reply, err := client.Send(ctx, "Hello", ollama.RequestConfig{
//	    Endpoint:    "http://127.0.0.1:11434/api/generate",
//	    Model:       "llama2",
//	    Temperature: 0.7,
//	    MaxTokens:   500,
//	})
//	if err != nil {
//	    fmt.Println(err) // "Error: 500 - ..." etc.
//	}
//
// Requests are never streamed and never retried. A 200 response without a
// "response" field is a success with NoResponsePlaceholder as the text;
// an explicit "response": null is treated the same as an absent field.
// HTTPStatus errors quote at most 4096 runes of the body; Exchange.Body
// keeps all of it.
package ollama
