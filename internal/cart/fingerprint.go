package cart

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

var lineNamespace = uuid.MustParse("6f1c1c6e-3c8a-4f0e-9a57-2f1a0c7f4b11")

// Fingerprint is the canonical serialization of a variant's attributes.
// encoding/json sorts map keys, so equal attribute sets always produce the
// same string. Base products fingerprint as "{}".
func Fingerprint(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "{}"
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// newLineID derives a line id from product identity, variant fingerprint and
// the creation instant.
func newLineID(productID, fingerprint string, at time.Time) string {
	name := productID + "|" + fingerprint + "|" + at.Format(time.RFC3339Nano)
	return uuid.NewSHA1(lineNamespace, []byte(name)).String()
}
