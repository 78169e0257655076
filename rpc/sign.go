package rpc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	// SignatureTTL is how long a request signed by Client stays valid.
	SignatureTTL = 2 * time.Minute
	// maxValidity bounds how far in the future a request may expire.
	maxValidity    = 10 * time.Minute
	maxNonceLength = 64
)

// Message returns the bytes a signer signs for one request.
func Message(method, nonce string, expires int64, params []byte) []byte {
	msg := make([]byte, 0, len(method)+len(nonce)+len(params)+24)
	msg = append(msg, method...)
	msg = append(msg, '\n')
	msg = append(msg, nonce...)
	msg = append(msg, '\n')
	msg = strconv.AppendInt(msg, expires, 10)
	msg = append(msg, '\n')
	msg = append(msg, params...)
	return msg
}

// Sign signs one request with every key.
func Sign(method, nonce string, expires int64, params []byte, keys ...solana.PrivateKey) (map[string]string, error) {
	msg := Message(method, nonce, expires, params)
	sigs := make(map[string]string, len(keys))

	for _, k := range keys {
		sig, err := k.Sign(msg)
		if err != nil {
			return nil, err
		}
		sigs[k.PublicKey().String()] = sig.String()
	}

	return sigs, nil
}

// errMissingSignature is returned when a required signer did not sign.
type errMissingSignature struct {
	Signer solana.PublicKey
}

func (e errMissingSignature) Error() string {
	return fmt.Sprintf("missing or invalid signature of %s", e.Signer)
}

type errInvalidNonce struct {
	Nonce string
}

func (e errInvalidNonce) Error() string {
	return fmt.Sprintf("invalid nonce %q: 1 to %d characters without newlines", e.Nonce, maxNonceLength)
}

type errExpired struct {
	Expires time.Time
}

func (e errExpired) Error() string {
	return fmt.Sprintf("request expiry %s is not within %s from now", e.Expires.UTC().Format(time.RFC3339), maxValidity)
}

// verify checks that every required signer signed the request and that the
// request has not expired at now. Requests without signers are not checked.
func verify(req *Request, now time.Time, required ...solana.PublicKey) error {
	if len(required) == 0 {
		return nil
	}

	if req.Nonce == "" || len(req.Nonce) > maxNonceLength || strings.ContainsRune(req.Nonce, '\n') {
		return errInvalidNonce{Nonce: req.Nonce}
	}

	expires := time.Unix(req.Expires, 0)
	if !expires.After(now) || expires.Sub(now) > maxValidity {
		return errExpired{Expires: expires}
	}

	msg := Message(req.Method, req.Nonce, req.Expires, req.Params)

	for _, signer := range required {
		encoded, ok := req.Signatures[signer.String()]
		if !ok {
			return errMissingSignature{Signer: signer}
		}

		sig, err := solana.SignatureFromBase58(encoded)
		if err != nil {
			return errMissingSignature{Signer: signer}
		}

		if !sig.Verify(signer, msg) {
			return errMissingSignature{Signer: signer}
		}
	}

	return nil
}
