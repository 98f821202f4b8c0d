// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
)

// DecodeCode decodes the return data of an administrative entry point.
func DecodeCode(output []byte) (errorreporter.Error, error) {
	var code uint64
	if err := codec.Unmarshal(output, &code); err != nil {
		return 0, fmt.Errorf("decoding return code: %w", err)
	}
	if code > 0xff {
		return 0, fmt.Errorf("return code %d out of range", code)
	}
	return errorreporter.Error(code), nil
}

// DecodeResult rebuilds the Result of an administrative entry point
// from its return data and the events emitted by emitter during the
// call. The last Failure event from emitter is taken as the record.
func DecodeResult(output []byte, logs []host.Event, emitter address.Address) (errorreporter.Result, error) {
	code, err := DecodeCode(output)
	if err != nil {
		return errorreporter.Result{}, err
	}
	result := errorreporter.Result{Code: code}
	if code == errorreporter.NoError {
		return result, nil
	}
	for i := len(logs) - 1; i >= 0; i-- {
		event := logs[i]
		if event.Address != emitter || event.Name != errorreporter.EventFailure {
			continue
		}
		var failure errorreporter.Failure
		if err := event.Decode(&failure); err != nil {
			return errorreporter.Result{}, fmt.Errorf("decoding failure event: %w", err)
		}
		result.Failure = &failure
		break
	}
	return result, nil
}
