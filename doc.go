// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package apiai is a typed client for the API.ai (Dialogflow v1) query
// endpoint.
//
// A Request carries exactly one Payload (a free-text Query or an Event), a
// session id, a Language and the conversation Contexts. Client.Query posts it
// to <base>/query?v=<version> and decodes the reply into a Response.
//
//	c, err := apiai.New(token, apiai.Options{})
//	if err != nil {
//		return err
//	}
//	resp, err := c.Query(ctx, apiai.NewQueryRequest("hello"))
//	if err != nil {
//		return err
//	}
//	fmt.Println(resp.Result.Fulfillment.Speech)
//
// Transport failures are reported as *TransportError and undecodable bodies as
// *DecodeError; errors.Is(err, ErrTransport) and errors.Is(err, ErrDecode)
// distinguish the two.
package apiai
