package hook

import (
	"fmt"
	"io"

	"ecavalidator/internal/domain"
)

const ecaInfo = "Any warnings noted above may indicate compliance issues with committer ECA requirements. " +
	"More information may be found on https://www.eclipse.org/legal/ECA.php"

// Report prints one block per commit in the format git hosts relay back to
// the pusher. Failure reasons carry errPrefix so the host shows them as errors.
func Report(w io.Writer, resp Response, errPrefix string) {
	for _, c := range resp.Commits {
		if c.Verdict == domain.VerdictFail {
			fmt.Fprintf(w, "Commit: %s\t\tX\n\n", c.Hash)
			fmt.Fprintf(w, "%s %s\n\n\n", errPrefix, c.Reason)
			continue
		}
		fmt.Fprintf(w, "Commit: %s\t\t✔\n\n", c.Hash)
		if c.Verdict == domain.VerdictWarn {
			fmt.Fprintf(w, "\t%s\n", c.Reason)
			fmt.Fprintln(w, ecaInfo)
		}
		fmt.Fprint(w, "\n\n")
	}
}
