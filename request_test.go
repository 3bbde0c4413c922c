// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSON(t *testing.T) {
	b, err := json.Marshal(Event{Name: "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Welcome","data":null}`, string(b))

	b, err = json.Marshal(Event{Name: "Welcome", Data: map[string]string{"client": "Slack"}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Welcome","data":{"client":"Slack"}}`, string(b))

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Welcome"}`), &ev))
	assert.Equal(t, "Welcome", ev.Name)
	assert.Nil(t, ev.Data)
}

func TestRequest_MarshalQuery(t *testing.T) {
	req := NewQueryRequest("hello moto", WithSessionID("12345"))

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Equal(t, `{"query":"hello moto","sessionId":"12345","lang":"en","contexts":[]}`, string(b))
}

func TestRequest_MarshalEvent(t *testing.T) {
	req := NewEventRequest(Event{Name: "Welcome"}, WithSessionID("12345"))

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Equal(t, `{"event":{"name":"Welcome","data":null},"sessionId":"12345","lang":"en","contexts":[]}`, string(b))
}

func TestRequest_MarshalContextsAndLanguage(t *testing.T) {
	req := NewQueryRequest("weiter",
		WithSessionID("s"),
		WithLanguage(German),
		WithContexts(
			Context{Name: "order", Parameters: map[string]string{"size": "L"}, Lifespan: Lifespan(2)},
			Context{Name: "plain", Parameters: map[string]string{}},
		),
	)

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Equal(t,
		`{"query":"weiter","sessionId":"s","lang":"de","contexts":[{"name":"order","parameters":{"size":"L"},"lifespan":2},{"name":"plain","parameters":{}}]}`,
		string(b))
}

func TestRequest_ZeroValueContextsEncodeAsEmptyList(t *testing.T) {
	req := Request{Payload: Query("hi"), SessionID: "s"}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Equal(t, `{"query":"hi","sessionId":"s","lang":"en","contexts":[]}`, string(b))
}

func TestRequest_EmptySessionOmitted(t *testing.T) {
	req := Request{Payload: Query("hi")}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sessionId")
}

func TestNewRequest_Defaults(t *testing.T) {
	a := NewQueryRequest("hi")
	b := NewQueryRequest("hi")

	assert.Equal(t, English, a.Lang)
	assert.NotNil(t, a.Contexts)
	assert.Empty(t, a.Contexts)
	assert.NotEqual(t, a.SessionID, b.SessionID, "each request gets its own session")

	_, err := uuid.Parse(a.SessionID)
	assert.NoError(t, err)
}

func TestRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Request
	}{
		{
			name: "query",
			data: `{"query":"hello moto","sessionId":"12345","lang":"en","contexts":[]}`,
			want: Request{Payload: Query("hello moto"), SessionID: "12345", Lang: English, Contexts: []Context{}},
		},
		{
			name: "event without data",
			data: `{"event":{"name":"Welcome","data":null},"sessionId":"12345","lang":"en","contexts":[]}`,
			want: Request{Payload: Event{Name: "Welcome"}, SessionID: "12345", Lang: English, Contexts: []Context{}},
		},
		{
			name: "event with data, missing contexts",
			data: `{"event":{"name":"Welcome","data":{"test":"arg1"}},"sessionId":"12345","lang":"ja"}`,
			want: Request{
				Payload:   Event{Name: "Welcome", Data: map[string]string{"test": "arg1"}},
				SessionID: "12345",
				Lang:      Japanese,
				Contexts:  []Context{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Request
			require.NoError(t, json.Unmarshal([]byte(tt.data), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequest_ContextOrderSurvivesRoundTrip(t *testing.T) {
	want := NewQueryRequest("next",
		WithSessionID("s-1"),
		WithLanguage(French),
		WithContexts(
			Context{Name: "zeta", Parameters: map[string]string{"a": "1"}, Lifespan: Lifespan(3)},
			Context{Name: "alpha", Parameters: map[string]string{}, Lifespan: Lifespan(0)},
			Context{Name: "mid", Parameters: map[string]string{"b": "2"}},
		),
	)

	b, err := json.Marshal(want)
	require.NoError(t, err)
	assert.Contains(t, string(b), `{"name":"alpha","parameters":{},"lifespan":0}`)

	var got Request
	require.NoError(t, json.Unmarshal(b, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Contexts, 3)
	assert.Nil(t, got.Contexts[2].Lifespan)
}

func TestRequest_UnmarshalRejects(t *testing.T) {
	var r Request
	err := json.Unmarshal([]byte(`{"sessionId":"1","lang":"en","contexts":[]}`), &r)
	assert.ErrorIs(t, err, ErrEmptyRequest)

	err = json.Unmarshal([]byte(`{"query":"a","event":{"name":"b","data":null},"lang":"en"}`), &r)
	assert.ErrorIs(t, err, ErrAmbiguousRequest)

	err = json.Unmarshal([]byte(`{"query":"a","lang":"xx"}`), &r)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, NewQueryRequest("").Validate(), "empty text is still a query")
	assert.ErrorIs(t, Request{}.Validate(), ErrEmptyRequest)
	assert.ErrorIs(t, NewEventRequest(Event{}).Validate(), ErrEmptyRequest)
	assert.ErrorIs(t, NewQueryRequest("hi", WithLanguage(Language(-1))).Validate(), ErrUnsupportedLanguage)

	_, err := json.Marshal(Request{})
	assert.ErrorIs(t, err, ErrEmptyRequest)
}

func TestRequest_Accessors(t *testing.T) {
	q := NewQueryRequest("hi")
	assert.Equal(t, "hi", q.Text())
	_, ok := q.Event()
	assert.False(t, ok)

	e := NewEventRequest(Event{Name: "E"})
	assert.Equal(t, "", e.Text())
	ev, ok := e.Event()
	assert.True(t, ok)
	assert.Equal(t, "E", ev.Name)

	p := &Event{Name: "P"}
	ev, ok = Request{Payload: p}.Event()
	assert.True(t, ok)
	assert.Equal(t, "P", ev.Name)
}

func TestWithSessionID_IgnoresBlank(t *testing.T) {
	req := NewQueryRequest("hi", WithSessionID(""))
	assert.NotEmpty(t, req.SessionID)
}
