package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

var proxyChoices = []string{"No Proxy", "Use Proxy"}

// AskUseProxy prints a numbered menu and reads one answer. An empty answer
// or EOF picks "No Proxy"; unrecognised answers re-prompt.
func AskUseProxy(in io.Reader, out io.Writer) (bool, error) {
	r := bufio.NewReader(in)
	for {
		fmt.Fprintln(out, "Do you want to use a proxy?")
		for i, c := range proxyChoices {
			fmt.Fprintf(out, "  %d) %s\n", i+1, c)
		}
		fmt.Fprint(out, "Choice [1]: ")

		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "1", "n", "no", "no proxy":
			return false, nil
		case "2", "y", "yes", "use proxy":
			return true, nil
		}
		if err == io.EOF {
			return false, nil
		}
		fmt.Fprintf(out, "Unrecognised choice %q\n", strings.TrimSpace(line))
	}
}
