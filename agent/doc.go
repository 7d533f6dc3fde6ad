// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the tool-augmented execution core of toolflow.

# Overview

An Agent holds identity (name, instructions, version), an opaque model
reference and its own tool registry. Each call to Process routes one
request to a tool or an inline handler, runs it through the execution
pipeline and returns exactly one Envelope. Failures never escape as
panics or errors; they come back as error envelopes.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                     Agent.Process                           │
	├─────────────────────────────────────────────────────────────┤
	│  Dispatcher                                                 │
	│  custom Selector → tag routes → ordered patterns → fallback │
	├─────────────────────────────────────────────────────────────┤
	│  Execution Pipeline                                         │
	│  validate input → execute → validate output → wrap          │
	├─────────────────────────────────────────────────────────────┤
	│  Observers (metrics, journal)                               │
	└─────────────────────────────────────────────────────────────┘

# Dispatch Priority

 1. Selector: optional custom routing; returning false falls through.
 2. Tagged: Request.Type matches a TagRoute (case-insensitive).
 3. Pattern: the first Pattern whose expression matches the message.
    Order is part of the routing contract.
 4. Fallback: general_response listing every registered tool.

# Envelopes

Success envelopes carry a response kind (weather_response, ...), a
rendered message, the tool output as data and an executionContext with
the strategy, tool, request id and detected values. Error envelopes use
kind error_response, a safe message, a diagnostic error string and an
executionContext holding the original request and the error class
(CONTRACT_VIOLATION, TOOL_EXECUTION_ERROR, NOT_FOUND, UNKNOWN_ERROR).

# Usage

	a, err := agent.New(agent.Config{
	    Name:     "Weather Assistant",
	    Tools:    kit.Tools(),
	    Routes:   kit.Routes(),
	    Patterns: kit.Patterns(),
	    Logger:   logger,
	})
	if err != nil {
	    log.Fatal(err)
	}

	env := a.Process(ctx, agent.Request{Message: "What's the weather in London?"})

# Thread Safety

An Agent is immutable after New. Process may be called concurrently.
*/
package agent
