package lnd

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// int64String decodes LND's 64-bit integers, which the REST gateway renders
// as JSON strings, while also accepting plain numbers.
type int64String int64

func (v *int64String) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*v = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*v = int64String(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = int64String(n)
	return nil
}

type addInvoiceRequest struct {
	Value  string `json:"value"`
	Memo   string `json:"memo,omitempty"`
	Expiry string `json:"expiry,omitempty"`
}

type addInvoiceResponse struct {
	RHash          string      `json:"r_hash"`
	PaymentRequest string      `json:"payment_request"`
	AddIndex       int64String `json:"add_index"`
}

type invoice struct {
	Memo           string      `json:"memo"`
	RHash          string      `json:"r_hash"`
	Value          int64String `json:"value"`
	Settled        bool        `json:"settled"`
	CreationDate   int64String `json:"creation_date"`
	SettleDate     int64String `json:"settle_date"`
	PaymentRequest string      `json:"payment_request"`
	Expiry         int64String `json:"expiry"`
	AmtPaidSat     int64String `json:"amt_paid_sat"`
	State          string      `json:"state"`
}

func (i invoice) isSettled() bool {
	return i.State == "SETTLED" || (i.State == "" && i.Settled)
}

type streamMessage struct {
	Result *invoice     `json:"result"`
	Error  *errorStatus `json:"error"`
}

type getInfoResponse struct {
	IdentityPubkey    string `json:"identity_pubkey"`
	Alias             string `json:"alias"`
	NumActiveChannels int64  `json:"num_active_channels"`
	SyncedToChain     bool   `json:"synced_to_chain"`
}

// errorStatus is the grpc-gateway error body. Older gateways put the text in
// "error", newer ones in "message".
type errorStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *errorStatus) text() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Error)
}

// hashToHex converts LND's base64 r_hash to the hex form used as order key.
func hashToHex(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(raw)
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(decoded), nil
}
