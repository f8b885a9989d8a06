package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserIDEncodesAsCanonicalString(t *testing.T) {
	uid := NewUserID()

	raw, err := json.Marshal(struct {
		ID UserID `json:"id"`
	}{ID: uid})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"`+uid.String()+`"}`, string(raw))

	var decoded struct {
		ID UserID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, uid, decoded.ID)
}

func TestDocumentIDEncodesAsCanonicalString(t *testing.T) {
	did := NewDocumentID()

	raw, err := json.Marshal(did)
	require.NoError(t, err)
	require.Equal(t, `"`+did.String()+`"`, string(raw))

	var decoded DocumentID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, did, decoded)
}

func TestIDRejectsMalformedText(t *testing.T) {
	var uid UserID
	require.Error(t, uid.UnmarshalText([]byte("not-a-uuid")))

	var did DocumentID
	require.Error(t, json.Unmarshal([]byte(`"12345"`), &did))
}
