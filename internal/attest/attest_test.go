package attest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrap builds an attestation the way the zkTLS service nests its record.
func wrap(t *testing.T, record map[string]any) Attestation {
	t.Helper()
	inner, err := json.Marshal(record)
	require.NoError(t, err)
	outer, err := json.Marshal(map[string]string{"data": string(inner)})
	require.NoError(t, err)
	return Attestation{Data: string(outer)}
}

func TestSubjectNameFieldOrder(t *testing.T) {
	tests := []struct {
		record map[string]any
		want   string
	}{
		{map[string]any{"xm": "张三"}, "张三"},
		{map[string]any{"studentName": "Li Si", "userName": "lisi"}, "Li Si"},
		{map[string]any{"name": "  ", "xm": "Wang"}, "Wang"},
		{map[string]any{"name": "Zhang", "xm": "Other"}, "Zhang"},
	}
	for _, tc := range tests {
		got, err := SubjectName(wrap(t, tc.record))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestSubjectNameErrors(t *testing.T) {
	_, err := SubjectName(wrap(t, map[string]any{"score": 520}))
	assert.ErrorIs(t, err, ErrNameMissing)

	_, err = SubjectName(Attestation{Data: "not json"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = SubjectName(Attestation{Data: `{"other":1}`})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = SubjectName(Attestation{Data: `{"data":"{broken"}`})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCheck(t *testing.T) {
	att := wrap(t, map[string]any{"xm": " Zhang San ", "list": []any{map[string]any{"score": 550}}})

	res, err := Check(att, true, "zhang san")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, " Zhang San ", res.Subject)

	_, err = Check(att, false, "Zhang San")
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = Check(att, true, "  ")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCheckMismatchOverridesVerified(t *testing.T) {
	att := wrap(t, map[string]any{"name": "Zhang San"})
	for _, verified := range []bool{true, false} {
		_, err := Check(att, verified, "Li Si")
		assert.ErrorIs(t, err, ErrNameMismatch)
		var mismatch *NameMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "Li Si", mismatch.Input)
		assert.Equal(t, "Zhang San", mismatch.Subject)
	}
}

func TestSameNameNormalizes(t *testing.T) {
	assert.True(t, SameName("José", "JOSÉ"))
	assert.False(t, SameName("Jose", "José"))
}

func TestParse(t *testing.T) {
	att, err := Parse([]byte(`{"data":"{\"data\":\"{\\\"xm\\\":\\\"A\\\"}\"}","signatures":["0x01"]}`))
	require.NoError(t, err)
	name, err := SubjectName(att)
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	_, err = Parse([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Parse([]byte(`[`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCredentialPayload(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got, err := CredentialPayload("Zhang", now)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Zhang","verified":true,"timestamp":1700000000123}`, got)
}
