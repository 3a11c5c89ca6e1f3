// Package healthlake talks to an AWS HealthLake FHIR datastore: direct
// resource CRUD over its REST API with manually signed requests, and import
// job submission through the AWS CLI fallback.
package healthlake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const signingAlgorithm = "AWS4-HMAC-SHA256"

// AmzDateFormat is the timestamp layout used in the x-amz-date header and
// the string to sign. The first 8 characters form the credential-scope date.
const AmzDateFormat = "20060102T150405Z"

// SignedRequest is the deterministic result of signing one outbound request.
// It is derived from method, path, query, host, timestamp, body digest, and
// the secret key, and is never persisted.
type SignedRequest struct {
	Method               string
	CanonicalURI         string
	CanonicalQueryString string
	SignedHeaders        string
	Signature            string
	Timestamp            string

	// Intermediate strings kept for verification and debugging.
	CanonicalRequest string
	StringToSign     string
	CredentialScope  string
}

// Authorization renders the Authorization header value for the request.
func (s *SignedRequest) Authorization(accessKeyID string) string {
	return signingAlgorithm + " " +
		"Credential=" + accessKeyID + "/" + s.CredentialScope + ", " +
		"SignedHeaders=" + s.SignedHeaders + ", " +
		"Signature=" + s.Signature
}

// Signer computes AWS Signature Version 4 signatures without the SDK signing
// helpers. The output must be bit-exact for the remote verifier to accept it.
type Signer struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Service         string
}

// Sign computes the signature for a single request. The timestamp must be
// generated once per request and reused identically in the sent x-amz-date
// header; any mismatch invalidates the signature.
func (s *Signer) Sign(method, host, path, query string, body []byte, timestamp time.Time) *SignedRequest {
	amzDate := timestamp.UTC().Format(AmzDateFormat)
	dateStamp := amzDate[:8]

	canonicalHeaders := "host:" + strings.ToLower(host) + "\n" + "x-amz-date:" + amzDate + "\n"
	signedHeaders := "host;x-amz-date"

	bodyDigest := sha256.Sum256(body)

	canonicalRequest := method + "\n" +
		path + "\n" +
		query + "\n" +
		canonicalHeaders + "\n" +
		signedHeaders + "\n" +
		hex.EncodeToString(bodyDigest[:])

	scope := dateStamp + "/" + s.Region + "/" + s.Service + "/aws4_request"

	requestDigest := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := signingAlgorithm + "\n" +
		amzDate + "\n" +
		scope + "\n" +
		hex.EncodeToString(requestDigest[:])

	signingKey := s.signingKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	return &SignedRequest{
		Method:               method,
		CanonicalURI:         path,
		CanonicalQueryString: query,
		SignedHeaders:        signedHeaders,
		Signature:            signature,
		Timestamp:            amzDate,
		CanonicalRequest:     canonicalRequest,
		StringToSign:         stringToSign,
		CredentialScope:      scope,
	}
}

// signingKey derives the per-day key through the fixed HMAC-SHA256 chain
// AWS4+secret -> date -> region -> service -> "aws4_request".
func (s *Signer) signingKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.SecretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.Region)
	kService := hmacSHA256(kRegion, s.Service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(data))
	return mac.Sum(nil)
}
