package identity

import (
	"encoding/base32"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/mcoot/keyquest/internal/model"
)

const redeemCodePrefix = "KQ"

var redeemEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// deriveRedeemCode computes a stable code for email keyed by secret, so two
// issuers racing on the same record agree on the value.
func deriveRedeemCode(secret, email string) (string, error) {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}

	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("redeem code: %w", err)
	}
	h.Write([]byte(model.NormalizeEmail(email)))

	enc := redeemEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%s-%s", redeemCodePrefix, enc[:4], enc[4:8]), nil
}
