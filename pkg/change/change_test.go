package change_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/errors"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (i *item) Validate() error {
	if i.ID == "" {
		return errors.NewValidationError("id", i.ID, "identity is required")
	}
	return nil
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want change.Action
	}{
		{"insert", change.Insert},
		{"update", change.Update},
		{"delete", change.Delete},
		{"INSERT", change.Insert},
		{" Delete ", change.Delete},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := change.ParseAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseActionRejectsUnknown(t *testing.T) {
	for _, in := range []string{"replace", "", "upsert", "inserted"} {
		_, err := change.ParseAction(in)
		require.Error(t, err, in)
		assert.True(t, errors.IsMalformedEnvelope(err), in)
	}
}

func TestActionJSON(t *testing.T) {
	data, err := json.Marshal(change.Update)
	require.NoError(t, err)
	assert.JSONEq(t, `"update"`, string(data))

	var a change.Action
	require.NoError(t, json.Unmarshal([]byte(`"Delete"`), &a))
	assert.Equal(t, change.Delete, a)
	assert.Equal(t, "delete", a.String())

	err = json.Unmarshal([]byte(`"replace"`), &a)
	assert.True(t, errors.IsMalformedEnvelope(err))

	_, err = json.Marshal(change.Action("bogus"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	env, err := change.Decode[item]([]byte(`{"action":"insert","record":{"id":"abc","name":"a","extra":true}}`))
	require.NoError(t, err)
	assert.Equal(t, change.Insert, env.Action())
	assert.Equal(t, item{ID: "abc", Name: "a"}, env.Record())
}

func TestDecodePartialDelete(t *testing.T) {
	env, err := change.Decode[item]([]byte(`{"action":"delete","record":{"id":"abc"}}`))
	require.NoError(t, err)
	assert.Equal(t, change.Delete, env.Action())
	assert.Equal(t, "abc", env.Record().ID)
	assert.Empty(t, env.Record().Name)
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"unknown action": `{"action":"replace","record":{"id":"abc"}}`,
		"missing action": `{"record":{"id":"abc"}}`,
		"missing record": `{"action":"insert"}`,
		"null record":    `{"action":"insert","record":null}`,
		"wrong shape":    `{"action":"insert","record":[1,2,3]}`,
		"no identity":    `{"action":"delete","record":{"name":"a"}}`,
		"not json":       `action=insert`,
	}
	for name, in := range tests {
		in := in
		t.Run(name, func(t *testing.T) {
			_, err := change.Decode[item]([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.IsMalformedEnvelope(err), "got %v", err)
		})
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	env := change.New(change.Update, item{ID: "1", Name: "n"})
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"update","record":{"id":"1","name":"n"}}`, string(data))

	back, err := change.Decode[item](data)
	require.NoError(t, err)
	assert.Equal(t, env, back)
}

func TestDecodeFrameNested(t *testing.T) {
	f, err := change.DecodeFrame([]byte(`{"channel":"scheduled_archivals","data":{"action":"insert","record":{"id":1}}}`))
	require.NoError(t, err)
	assert.Equal(t, "scheduled_archivals", f.Channel)
	assert.JSONEq(t, `{"action":"insert","record":{"id":1}}`, string(f.Payload))
}

func TestDecodeFrameFlat(t *testing.T) {
	raw := `{"channel":"scheduled-archival","action":"insert","record":{"id":"abc","url":"http://x"}}`
	f, err := change.DecodeFrame([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "scheduled-archival", f.Channel)

	env, err := change.Decode[item](f.Payload)
	require.NoError(t, err)
	assert.Equal(t, "abc", env.Record().ID)
}

func TestDecodeFrameMalformed(t *testing.T) {
	for _, in := range []string{`{"action":"insert"}`, `{"channel":"  "}`, `[]`, `nope`} {
		_, err := change.DecodeFrame([]byte(in))
		require.Error(t, err, in)
		assert.True(t, errors.IsMalformedEnvelope(err), in)
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := change.EncodeFrame("tracked_collections", change.New(change.Delete, item{ID: "7"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"tracked_collections","data":{"action":"delete","record":{"id":"7"}}}`, string(data))

	f, err := change.DecodeFrame(data)
	require.NoError(t, err)
	env, err := change.Decode[item](f.Payload)
	require.NoError(t, err)
	assert.Equal(t, change.Delete, env.Action())
}
