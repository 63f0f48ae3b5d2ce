package instagram

import (
	"bytes"

	errs "igengage/pkg/errors"
)

// restrictionPhrases are body fragments that indicate the acting account has
// been restricted. Matching one turns the response into a typed error so the
// driver can park the account.
var restrictionPhrases = [][]byte{
	[]byte("challenge_required"),
	[]byte("checkpoint_required"),
	[]byte("feedback_required"),
	[]byte("Try Again Later"),
	[]byte("We restrict certain activity"),
	[]byte("Your account has been temporarily locked"),
}

var shadowbanPhrases = [][]byte{
	[]byte("feedback_required"),
	[]byte("We restrict certain activity"),
}

// detectRestriction scans a response body for restriction markers and returns
// a typed error when one is found, nil otherwise
func detectRestriction(body []byte) *errs.Error {
	if len(body) == 0 {
		return nil
	}
	for _, phrase := range shadowbanPhrases {
		if bytes.Contains(body, phrase) {
			return errs.New(errs.ErrorTypeShadowban, 0, "action blocked: %s", phrase)
		}
	}
	for _, phrase := range restrictionPhrases {
		if bytes.Contains(body, phrase) {
			return errs.New(errs.ErrorTypeRestricted, 0, "account restricted: %s", phrase)
		}
	}
	return nil
}
