package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `<html><body>
<p>Kinh gui Quy khach,</p>
<table>
<tr><td>Tai khoan</td><td>0451000285790</td></tr>
<tr><td>So tien</td><td>+225,000 VND</td></tr>
<tr><td>Thoi gian</td><td>15-06-2025 12:34:56</td></tr>
<tr><td>Noi dung giao dich</td><td>MBVCB.7381920.QMORD42.CT tu 9704229201234 LE VAN PHUC toi 0451000285790 QM BOOKSTORE</td></tr>
</table>
</body></html>`

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification(sampleBody, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "0451000285790", n.CreditAccount)
	assert.Equal(t, int64(225000), n.Amount)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 34, 56, 0, time.UTC), n.HappenedAt)
	assert.Equal(t, "QMORD42", n.Memo)
	assert.Equal(t, "9704229201234", n.SenderAccount)
	assert.Equal(t, "LE VAN PHUC", n.SenderName)
}

func TestParseNotificationRejectsGarbage(t *testing.T) {
	_, err := ParseNotification("<html>nothing useful here</html>", time.UTC)
	require.ErrorIs(t, err, ErrUnparsableBody)
}

func TestExtractMemo(t *testing.T) {
	memo, acc, name := ExtractMemo("MBVCB.123.QMORD7.CT tu 111222333 NGUYEN VAN A toi 0451000285790 QM BOOKSTORE")
	assert.Equal(t, "QMORD7", memo)
	assert.Equal(t, "111222333", acc)
	assert.Equal(t, "NGUYEN VAN A", name)

	// Details without the envelope pass through verbatim.
	memo, acc, name = ExtractMemo("chuyen tien QMORD9")
	assert.Equal(t, "chuyen tien QMORD9", memo)
	assert.Empty(t, acc)
	assert.Empty(t, name)
}

func TestOrderCodePattern(t *testing.T) {
	re := OrderCodePattern("QMORD")
	assert.Equal(t, "QMORD42", re.FindString("thanh toan QMORD42 cam on"))
	assert.Empty(t, re.FindString("QMORD khong co so"))
}

func TestMemoReferences(t *testing.T) {
	cases := []struct {
		memo, code string
		want       bool
	}{
		{"thanh toan QMORD42", "QMORD42", true},
		{"QMORD42 cam on", "QMORD42", true},
		{"QMORD42", "QMORD42", true},
		{"thanh toan QMORD42", "QMORD4", false},
		{"QMORD425", "QMORD42", false},
		{"QMORD42abc", "QMORD42", false},
		{"tien an trua", "QMORD42", false},
		{"thanh toan QMORD42", "", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MemoReferences(c.memo, c.code), "memo %q code %q", c.memo, c.code)
	}
}

func TestFingerprintStable(t *testing.T) {
	at := time.Date(2025, 6, 15, 12, 34, 56, 0, time.UTC)
	fp1 := Fingerprint(at, 225000, "9704229201234", "0451000285790")
	fp2 := Fingerprint(at.In(time.FixedZone("ICT", 7*3600)), 225000, "9704229201234", "0451000285790")
	// Same instant, different zone representation: identical fingerprint.
	assert.Equal(t, fp1, fp2)

	assert.NotEqual(t, fp1, Fingerprint(at, 225001, "9704229201234", "0451000285790"))
	assert.NotEqual(t, fp1, Fingerprint(at, 225000, "9704229201235", "0451000285790"))
	assert.NotEqual(t, fp1, Fingerprint(at.Add(time.Second), 225000, "9704229201234", "0451000285790"))
}

func TestFromNotificationDerivesFingerprint(t *testing.T) {
	n, err := ParseNotification(sampleBody, time.UTC)
	require.NoError(t, err)

	tx := FromNotification(n)
	assert.Equal(t, Fingerprint(n.HappenedAt, n.Amount, n.SenderAccount, n.CreditAccount), tx.Fingerprint)
	assert.False(t, tx.Verified)
}
