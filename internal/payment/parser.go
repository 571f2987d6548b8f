package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnparsableBody = errors.New("notification body not recognized")
	ErrNoOrderCode    = errors.New("memo carries no order code")
)

// Notification is the structured form of one bank-notification email body.
type Notification struct {
	CreditAccount string
	HappenedAt    time.Time
	Amount        int64
	Details       string
	Memo          string
	SenderAccount string
	SenderName    string
}

var (
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reAccount = regexp.MustCompile(`(?i)t[àa]i\s*kho[ảa]n[^0-9]*([0-9]{6,})`)
	reAmount  = regexp.MustCompile(`\+?\s*([0-9][0-9.,]*)\s*VND`)
	reWhen    = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})\s+(\d{2}):(\d{2}):(\d{2})`)
	reDetails = regexp.MustCompile(`(?i)n[ộo]i\s*dung(?:\s+giao\s*d[ịi]ch)?\s*:?\s*(.+)`)

	// MBVCB.<id>.<memo>.CT tu <sender account> <sender name> toi ...
	reEnvelope = regexp.MustCompile(`MBVCB\.\d+\.(.+?)\.CT tu\s+(\S+)\s+([^.]*?)(?:\s+toi\b.*)?$`)
)

// ParseNotification turns a raw HTML mail body into a Notification. Pure:
// literal sample payloads are enough to test it, no mailbox needed.
func ParseNotification(body string, loc *time.Location) (Notification, error) {
	text := reTag.ReplaceAllString(body, " ")

	var n Notification

	m := reAccount.FindStringSubmatch(text)
	if m == nil {
		return Notification{}, fmt.Errorf("%w: credit account", ErrUnparsableBody)
	}
	n.CreditAccount = m[1]

	m = reAmount.FindStringSubmatch(text)
	if m == nil {
		return Notification{}, fmt.Errorf("%w: amount", ErrUnparsableBody)
	}
	amount, err := strconv.ParseInt(strings.NewReplacer(",", "", ".", "").Replace(m[1]), 10, 64)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: amount", ErrUnparsableBody)
	}
	n.Amount = amount

	m = reWhen.FindStringSubmatch(text)
	if m == nil {
		return Notification{}, fmt.Errorf("%w: timestamp", ErrUnparsableBody)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	sec, _ := strconv.Atoi(m[6])
	if loc == nil {
		loc = time.UTC
	}
	n.HappenedAt = time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)

	m = reDetails.FindStringSubmatch(text)
	if m == nil {
		return Notification{}, fmt.Errorf("%w: payment details", ErrUnparsableBody)
	}
	n.Details = strings.TrimSpace(m[1])

	n.Memo, n.SenderAccount, n.SenderName = ExtractMemo(n.Details)
	return n, nil
}

// ExtractMemo strips the bank envelope from the free-text payment details,
// leaving the transfer memo the buyer actually typed, plus the sender
// account and name the bank appended. Details without the envelope are
// used as the memo verbatim.
func ExtractMemo(details string) (memo, senderAccount, senderName string) {
	m := reEnvelope.FindStringSubmatch(details)
	if m == nil {
		return strings.TrimSpace(details), "", ""
	}
	return strings.TrimSpace(m[1]), m[2], strings.TrimSpace(m[3])
}

// OrderCodePattern builds the memo filter for a transfer-reference prefix,
// e.g. QMORD -> QMORD\d+.
func OrderCodePattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(prefix) + `\d+`)
}

// MemoReferences reports whether memo cites exactly this transfer code.
// Codes end in digits, so a bare substring check would let QMORD4 claim
// a transfer meant for QMORD42; the code must end at a word boundary.
func MemoReferences(memo, code string) bool {
	if code == "" {
		return false
	}
	re := regexp.MustCompile(regexp.QuoteMeta(code) + `\b`)
	return re.MatchString(memo)
}

// Fingerprint is the dedup key of an ingested transaction: a stable hash
// of exactly the timestamp, amount and the two account numbers. The mail
// poll overlaps message windows, so the same notification is fingerprinted
// more than once and must always come out identical.
func Fingerprint(happenedAt time.Time, amount int64, debitAccount, creditAccount string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s", happenedAt.UTC().Unix(), amount, debitAccount, creditAccount)
	return hex.EncodeToString(h.Sum(nil))
}
