package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrintsHeaders(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-appcode", "APP", "-secret", "k", "-algorithm", "md5", "b=2", "a=1"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "canonical: a=1&b=2\n")
	assert.Contains(t, out, "signature: af97cb1e07cd9f9f1279e0bae215015d\n")
	assert.Contains(t, out, "X-Auth-AppCode: APP\n")
	assert.Contains(t, out, "X-Auth-SignatureType: MD5\n")
	assert.Contains(t, out, "Content-Type: application/x-www-form-urlencoded\n")
}

func TestRunJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-appcode", "APP", "-secret", "k", "-algorithm", "MD5", "-json", "a=1", "b=2"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var got output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "a=1&b=2", got.Canonical)
	assert.Equal(t, "af97cb1e07cd9f9f1279e0bae215015d", got.Signature)
	assert.Equal(t, "APP", got.Headers.AppCode)
}

func TestRunFailures(t *testing.T) {
	cases := []struct {
		name string
		args []string
		code int
	}{
		{"no params", []string{"-appcode", "APP", "-secret", "k"}, 2},
		{"bad pair", []string{"-appcode", "APP", "-secret", "k", "novalue"}, 2},
		{"empty key", []string{"-appcode", "APP", "-secret", "k", "=1"}, 2},
		{"empty secret", []string{"-appcode", "APP", "-secret", "", "a=1"}, 1},
		{"unknown algorithm", []string{"-appcode", "APP", "-secret", "k", "-algorithm", "SHA1", "a=1"}, 1},
		{"unknown flag", []string{"-nope"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tc.code, run(tc.args, &stdout, &stderr))
			assert.Empty(t, stdout.String())
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestParsePairsKeepsEqualsInValue(t *testing.T) {
	params, err := parsePairs([]string{"url=https://x.test/?a=b", "k="})
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/?a=b", params["url"])
	assert.Equal(t, "", params["k"])
}
