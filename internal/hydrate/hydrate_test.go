package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type envPayload struct {
	Region   string         `json:"region"`
	Replicas int            `json:"replicas"`
	Features map[string]any `json:"features"`
}

func TestDecodePlainPayload(t *testing.T) {
	decoder := NewDecoder[envPayload]()

	got, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{
		"region": "us-east-1",
		"replicas": 3,
		"features": {"beta": true}
	}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	want := envPayload{
		Region:   "us-east-1",
		Replicas: 3,
		Features: map[string]any{"beta": true},
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("decoded payload mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	decoder := NewDecoder[envPayload]()

	_, err := decoder.Decode(Context{Provider: "deploy.env"}, nil)
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
	if !strings.Contains(err.Error(), `provider "deploy.env"`) {
		t.Fatalf("expected provider in error, got %v", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	decoder := NewDecoder[envPayload]()

	_, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"region":`))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !strings.Contains(err.Error(), "parse payload") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDecodePreHookRewritesPayload(t *testing.T) {
	decoder := NewDecoder[envPayload](
		WithPreHook[envPayload](func(ctx Context, payload map[string]any) (map[string]any, error) {
			if region, ok := payload["region"].(string); ok {
				payload["region"] = strings.ToLower(region)
			}
			if _, ok := payload["replicas"]; !ok {
				payload["replicas"] = 1
			}
			return payload, nil
		}),
	)

	got, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"region": "EU-WEST-1"}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got.Region != "eu-west-1" {
		t.Fatalf("expected normalised region, got %q", got.Region)
	}
	if got.Replicas != 1 {
		t.Fatalf("expected defaulted replicas, got %d", got.Replicas)
	}
}

func TestDecodePreHookError(t *testing.T) {
	errReject := errors.New("region missing")
	decoder := NewDecoder[envPayload](
		WithPreHook[envPayload](func(ctx Context, payload map[string]any) (map[string]any, error) {
			if _, ok := payload["region"]; !ok {
				return nil, errReject
			}
			return payload, nil
		}),
	)

	_, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"replicas": 2}`))
	if !errors.Is(err, errReject) {
		t.Fatalf("expected wrapped pre-hook error, got %v", err)
	}
	if !strings.Contains(err.Error(), "pre-hook") {
		t.Fatalf("expected pre-hook context in error, got %v", err)
	}
}

func TestDecodePostHookValidates(t *testing.T) {
	decoder := NewDecoder[envPayload](
		WithPostHook[envPayload](func(ctx Context, value *envPayload) error {
			if value.Replicas < 0 {
				return fmt.Errorf("replicas must be non-negative, got %d", value.Replicas)
			}
			return nil
		}),
	)

	if _, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"replicas": 2}`)); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	_, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"replicas": -1}`))
	if err == nil {
		t.Fatal("expected post-hook validation failure")
	}
	if !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook context in error, got %v", err)
	}
}

func TestDecodeUseNumber(t *testing.T) {
	type rawEnv struct {
		Limits map[string]any `json:"limits"`
	}

	decoder := NewDecoder[rawEnv](WithUseNumber[rawEnv]())

	got, err := decoder.Decode(Context{Provider: "limits"}, []byte(`{"limits": {"max": 9007199254740993}}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	num, ok := got.Limits["max"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", got.Limits["max"])
	}
	if num.String() != "9007199254740993" {
		t.Fatalf("expected full precision, got %s", num)
	}
}

func TestDecodeDecoderConfig(t *testing.T) {
	type strictEnv struct {
		Region string `json:"region"`
	}

	decoder := NewDecoder[strictEnv](
		WithDecoderConfig[strictEnv](func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		}),
	)

	_, err := decoder.Decode(Context{Provider: "deploy.env"}, []byte(`{"region": "us", "bogus": 1}`))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
	if !strings.Contains(err.Error(), "decode payload") {
		t.Fatalf("expected decode error context, got %v", err)
	}
}
