package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jamesainslie/treesum/pkg/treesum/manifest"
	"github.com/jamesainslie/treesum/pkg/treesum/reconcile"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// shellOptions carries what the review prompt needs besides the
// session itself.
type shellOptions struct {
	// ManifestPath is where the write command persists the manifest.
	ManifestPath string

	// ExcludeMarker is carried into the written manifest so the next
	// run skips the same subtrees.
	ExcludeMarker string
}

// shell is the interactive review prompt entered after a scan.
type shell struct {
	sess *reconcile.Session
	opts shellOptions
}

func newShell(sess *reconcile.Session, opts shellOptions) *shell {
	return &shell{sess: sess, opts: opts}
}

// shellCommand maps a name to its handler. Handlers return false to
// leave the prompt.
type shellCommand struct {
	name string
	run  func(*shell, io.Writer) bool
}

// shellCommands is matched by unambiguous prefix, so "ch", "w" or "q"
// work as shortcuts.
var shellCommands = []shellCommand{
	{"help", (*shell).cmdHelp},
	{"new", (*shell).cmdNew},
	{"untouched", (*shell).cmdUntouched},
	{"touched", (*shell).cmdTouched},
	{"changed", (*shell).cmdChanged},
	{"modified", (*shell).cmdChanged},
	{"deleted", (*shell).cmdDeleted},
	{"copied", (*shell).cmdCopied},
	{"renamed", (*shell).cmdRenamed},
	{"error", (*shell).cmdError},
	{"write", (*shell).cmdWrite},
	{"save", (*shell).cmdWrite},
	{"quit", (*shell).cmdQuit},
	{"exit", (*shell).cmdQuit},
}

// run is the review loop: summary, prompt, command, repeat. It returns
// when the user leaves or input ends.
func (sh *shell) run(in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	for {
		sh.printSummary(out)
		fmt.Fprint(out, "Command (see help)? ")
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return nil
		}
		if !sh.dispatch(out, strings.TrimSuffix(line, "\n")) {
			return nil
		}
		if err != nil {
			return nil
		}
	}
}

// dispatch resolves a command by unambiguous prefix and runs it. It
// returns false when the shell should exit.
func (sh *shell) dispatch(w io.Writer, line string) bool {
	var matched []shellCommand
	for _, c := range shellCommands {
		if strings.HasPrefix(c.name, line) {
			matched = append(matched, c)
		}
	}
	switch len(matched) {
	case 1:
		return matched[0].run(sh, w)
	case 0:
		fmt.Fprintln(w, `Unknown command. See "help".`)
	default:
		fmt.Fprintln(w, `Ambiguous command. See "help".`)
	}
	return true
}

// printSummary renders the scan summary with right-aligned labels.
// Zero counters are left out, the total never is.
func (sh *shell) printSummary(w io.Writer) {
	t := sh.sess.Totals()
	rows := []struct {
		label string
		count int
	}{
		{"New", t.New},
		{"Untouched", t.Seen},
		{"Touched", t.Touched},
		{"Changed", t.Changed},
		{"Errors", t.Errors},
		{"Renamed", t.Renamed},
		{"Copied", t.Copied},
		{"Skipped", t.Skipped},
		{"Deleted", sh.sess.DeletedCount()},
	}
	fmt.Fprintf(w, "File scan summary:\n")
	for _, row := range rows {
		if row.count == 0 {
			continue
		}
		fmt.Fprintf(w, "%11s: %d\n", row.label, row.count)
	}
	fmt.Fprintf(w, "%11s: %d\n", "Total", sh.sess.Files().Len())
}

// listStatus prints every record in st with its listing verb, plus the
// origin line for copies and renames.
func (sh *shell) listStatus(w io.Writer, st types.Status) bool {
	word := listWord(st)
	sh.sess.Files().Walk(func(path string, rec *types.FileRecord) bool {
		if rec.Status != st {
			return true
		}
		switch st {
		case types.StatusError:
			fmt.Fprintf(w, "%s ERROR. %s\n", path, rec.Err)
		case types.StatusCopied, types.StatusRenamed:
			fmt.Fprintf(w, "%s %s\n", path, word)
			fmt.Fprintf(w, "<-- %s\n", rec.OldPath)
		default:
			fmt.Fprintf(w, "%s %s\n", path, word)
		}
		return true
	})
	return true
}

// listWord is the listing verb for a status. Quiet states stay
// lowercase, states that need attention shout.
func listWord(st types.Status) string {
	switch st {
	case types.StatusNew:
		return "new."
	case types.StatusSeen:
		return "untouched."
	case types.StatusTouched:
		return "touched."
	case types.StatusChanged:
		return "CHANGED."
	case types.StatusUnseen:
		return "DELETED."
	case types.StatusCopied:
		return "copied."
	case types.StatusRenamed:
		return "renamed."
	case types.StatusError:
		return "ERROR."
	}
	return st.String() + "."
}

func (sh *shell) cmdHelp(w io.Writer) bool {
	fmt.Fprint(w, `Commands (unambiguous prefixes work):
  help       show this list
  new        list files not in the manifest
  untouched  list files whose stored metadata matched
  touched    list files re-digested to unchanged content
  changed    list files whose content changed
  modified   alias for changed
  deleted    list manifest entries missing from the tree
  copied     list new files whose digest matches an existing entry
  renamed    list files moved to a new path
  error      list files that could not be read
  write      write the updated manifest and leave
  save       alias for write
  quit       leave without writing
  exit       alias for quit
`)
	return true
}

func (sh *shell) cmdNew(w io.Writer) bool       { return sh.listStatus(w, types.StatusNew) }
func (sh *shell) cmdUntouched(w io.Writer) bool { return sh.listStatus(w, types.StatusSeen) }
func (sh *shell) cmdTouched(w io.Writer) bool   { return sh.listStatus(w, types.StatusTouched) }
func (sh *shell) cmdChanged(w io.Writer) bool   { return sh.listStatus(w, types.StatusChanged) }
func (sh *shell) cmdDeleted(w io.Writer) bool   { return sh.listStatus(w, types.StatusUnseen) }
func (sh *shell) cmdCopied(w io.Writer) bool    { return sh.listStatus(w, types.StatusCopied) }
func (sh *shell) cmdRenamed(w io.Writer) bool   { return sh.listStatus(w, types.StatusRenamed) }
func (sh *shell) cmdError(w io.Writer) bool     { return sh.listStatus(w, types.StatusError) }

// cmdWrite persists the manifest and leaves the prompt. A failed write
// keeps the prompt open so nothing is lost.
func (sh *shell) cmdWrite(w io.Writer) bool {
	res, err := manifest.WriteFile(sh.opts.ManifestPath, sh.sess.Files(), manifest.WriteOptions{
		ExcludeMarker: sh.opts.ExcludeMarker,
	})
	if err != nil {
		printError("could not write %s: %v", sh.opts.ManifestPath, err)
		return true
	}
	fmt.Fprintf(w, "wrote %d digests to %s\n", res.Entries, sh.opts.ManifestPath)
	return false
}

func (sh *shell) cmdQuit(io.Writer) bool { return false }
