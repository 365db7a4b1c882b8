package process

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/caffeineduck/gopad/result"
)

// readRecords parses the primary channel as a continuous sequence of
// self-delimiting JSON records. A chunk that fails to decode is surfaced
// as one diagnostic plain dump and the reader resyncs at the next newline;
// the stream never aborts on a malformed record.
func (s *Supervisor) readRecords(r io.Reader, sink Events) {
	br := bufio.NewReader(r)
	dec := json.NewDecoder(br)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				return
			}
			rest, _ := io.ReadAll(dec.Buffered())
			recovered := bufio.NewReader(io.MultiReader(bytes.NewReader(rest), br))
			line, rerr := recovered.ReadString('\n')
			if text := strings.TrimSpace(line); text != "" {
				sink.Dumped(&result.Dump{Header: s.quotas.Text("unrecognized output: " + text)})
			}
			if rerr != nil {
				return
			}
			br = recovered
			dec = json.NewDecoder(br)
			continue
		}

		obj, err := result.DecodeObject(raw)
		if err != nil {
			sink.Dumped(&result.Dump{Header: s.quotas.Text("unrecognized record: " + string(raw))})
			continue
		}
		switch o := obj.(type) {
		case *result.Dump:
			sink.Dumped(s.quotas.Bound(o))
		case *result.Exception:
			sink.Errored(o)
		case *result.InputRequest:
			sink.InputRequested()
		}
	}
}

// readLines forwards the secondary channel line by line; each line is an
// independent preformatted dump bounded by the same quotas as runtime
// values. Lines of any length are drained in full: an overlong line is
// truncated to the quota, never allowed to stop the reader before
// end-of-stream, which would back-pressure the child.
func (s *Supervisor) readLines(r io.Reader, sink Events) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" || err == nil {
			sink.Dumped(&result.Dump{Header: s.quotas.Text(line)})
		}
		if err != nil {
			return
		}
	}
}
