package borrowing

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8 = "utf8"
	EncodingSJIS = "sjis"
)

var csvHeader = []string{"request_id", "requestor_id", "request_date", "status", "approver_id", "line_no", "book_id", "title"}

// csvEncoder: エンコーダと Content-Type に載せる charset
func csvEncoder(name string) (*encoding.Encoder, string, error) {
	switch strings.ToLower(name) {
	case "", EncodingUTF8:
		// Excel で文字化けしないよう BOM 付き
		return unicode.UTF8BOM.NewEncoder(), "utf-8", nil
	case EncodingSJIS, "cp932", "shift_jis":
		// Shift_JIS に無い文字は置換して出力を止めない
		return encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()), "shift_jis", nil
	default:
		return nil, "", ErrInvalid("encoding must be utf8 or sjis")
	}
}

// encodeCSV: 1明細1行。明細の無い申請は本の列を空にして1行出す。
func encodeCSV(rs []Request, enc *encoding.Encoder) ([]byte, error) {
	var b bytes.Buffer
	tw := transform.NewWriter(&b, enc)
	w := csv.NewWriter(tw)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rs {
		head := []string{
			r.ID,
			r.RequestorID,
			r.RequestDate.UTC().Format(time.RFC3339),
			r.Status.String(),
			r.ApproverID.String,
		}
		if len(r.Lines) == 0 {
			if err := w.Write(append(head, "", "", "")); err != nil {
				return nil, err
			}
			continue
		}
		for _, l := range r.Lines {
			rec := append(append([]string{}, head...), strconv.Itoa(l.LineNo), l.BookID, l.Title)
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
