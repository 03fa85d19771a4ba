package directory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRecord = `{"id":1,"name":"Leanne Graham","username":"Bret","email":"Sincere@april.biz",
	"phone":"1-770-736-8031 x56442","website":"hildegard.org",
	"address":{"street":"Kulas Light","suite":"Apt. 556","city":"Gwenborough","zipcode":"92998-3874"},
	"company":{"name":"Romaguera-Crona","catchPhrase":"Multi-layered client-server neural-net","bs":"harness real-time e-markets"}}`

func TestDecodeRecordsValid(t *testing.T) {
	records, err := DecodeRecords([]byte("[" + validRecord + "]"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, "Bret", r.Username)
	assert.Equal(t, "Gwenborough", r.Address.City)
	assert.Equal(t, "harness real-time e-markets", r.Company.BusinessSlogan)
}

func TestDecodeRecordsEmptyArray(t *testing.T) {
	records, err := DecodeRecords([]byte(" [] "))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestDecodeRecordsAcceptsEmptyStrings(t *testing.T) {
	payload := strings.Replace(validRecord, `"website":"hildegard.org"`, `"website":""`, 1)
	records, err := DecodeRecords([]byte("[" + payload + "]"))
	require.NoError(t, err)
	assert.Equal(t, "", records[0].Website)
}

func TestDecodeRecordsRejectsWholeBatch(t *testing.T) {
	missingEmail := strings.Replace(validRecord, `"email":"Sincere@april.biz",`, "", 1)
	missingZip := strings.Replace(validRecord, `,"zipcode":"92998-3874"`, "", 1)
	missingCompany := strings.Replace(validRecord, `"company":`, `"employer":`, 1)
	nullName := strings.Replace(validRecord, `"name":"Leanne Graham"`, `"name":null`, 1)
	stringID := strings.Replace(validRecord, `"id":1`, `"id":"1"`, 1)
	upperEmail := strings.Replace(validRecord, `"email":`, `"EMAIL":`, 1)
	foldedCatchPhrase := strings.Replace(validRecord, `"catchPhrase":`, `"catchphrase":`, 1)
	upperCity := strings.Replace(validRecord, `"city":`, `"City":`, 1)

	cases := map[string]string{
		"missing email":     "[" + validRecord + "," + missingEmail + "]",
		"missing zipcode":   "[" + missingZip + "]",
		"missing company":   "[" + missingCompany + "]",
		"null name":         "[" + nullName + "]",
		"wrong id type":     "[" + stringID + "]",
		"EMAIL key":         "[" + validRecord + "," + upperEmail + "]",
		"catchphrase key":   "[" + foldedCatchPhrase + "]",
		"City key":          "[" + upperCity + "]",
		"scalar address":    "[" + strings.Replace(validRecord, `"address":{`, `"address":"x","ignored":{`, 1) + "]",
		"null element":      "[" + validRecord + ",null]",
		"object not array":  validRecord,
		"truncated":         "[" + validRecord,
		"empty body":        "",
		"scalar element":    "[1]",
		"fractional number": "[" + strings.Replace(validRecord, `"id":1`, `"id":1.5`, 1) + "]",
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			records, err := DecodeRecords([]byte(payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Nil(t, records)
		})
	}
}

func TestDecodeRecordsNamesMissingField(t *testing.T) {
	missingZip := strings.Replace(validRecord, `,"zipcode":"92998-3874"`, "", 1)
	_, err := DecodeRecords([]byte("[" + missingZip + "]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address.zipcode")
}

func TestDecodeRecordsExactKeyWinsOverFoldedDuplicate(t *testing.T) {
	payload := strings.Replace(validRecord, `"email":"Sincere@april.biz",`,
		`"email":"Sincere@april.biz","EMAIL":"shouted@april.biz",`, 1)
	payload = strings.Replace(payload, `"bs":`, `"BS":"loud","bs":`, 1)

	records, err := DecodeRecords([]byte("[" + payload + "]"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Sincere@april.biz", records[0].Email)
	assert.Equal(t, "harness real-time e-markets", records[0].Company.BusinessSlogan)
}

func TestDecodeRecordsIgnoresUnknownKeys(t *testing.T) {
	payload := strings.Replace(validRecord, `"id":1,`, `"id":1,"nickname":"Lea",`, 1)
	records, err := DecodeRecords([]byte("[" + payload + "]"))
	require.NoError(t, err)
	assert.Equal(t, "Leanne Graham", records[0].Name)
}

func TestCloneDoesNotShareBacking(t *testing.T) {
	src := []UserRecord{{ID: 1, Name: "a"}}
	out := Clone(src)
	out[0].Name = "b"
	assert.Equal(t, "a", src[0].Name)
	assert.NotNil(t, Clone(nil))
}
