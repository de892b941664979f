// Package manifest reads and writes treesum digest files.
//
// A manifest is a line-oriented text file compatible with the md5sum
// tool family. Each entry is a digest line:
//
//	d41d8cd98f00b204e9800998ecf8427e  docs/readme.txt
//
// preceded by an optional metadata comment carrying the file's
// modification time and size:
//
//	#: mtime 1712048112 size 1024
//
// Symbolic links have no digest; they are stored entirely in comment
// form as a target line followed by a symlink line naming the link.
// Names and targets containing backslashes or newlines are written in
// escaped form, announced by a backslash before the digest or after
// the keyword. A trailing "#: crc 0x........ eof" line protects the
// whole file with a CRC-32 checksum. Lines starting with "#" but not
// "#:" are free-form comments and are ignored.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/logging"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

var logger = logging.Get("manifest")

// Errors reported while locating or parsing manifests.
var (
	// ErrNoManifest indicates no default manifest file exists in the
	// scan root.
	ErrNoManifest = errors.New("no manifest file found")

	// ErrMultipleManifests indicates more than one default manifest
	// file exists and the caller must pick one explicitly.
	ErrMultipleManifests = errors.New("multiple manifest files found")

	// ErrChecksumMismatch indicates the crc trailer does not match the
	// file content.
	ErrChecksumMismatch = errors.New("manifest checksum mismatch")

	// ErrAlgorithmMismatch indicates digest lines of conflicting
	// algorithms, or a conflict with the requested algorithm.
	ErrAlgorithmMismatch = errors.New("conflicting digest algorithms")
)

// ParseError describes a fatal defect in a manifest file.
type ParseError struct {
	// Path is the manifest file name.
	Path string
	// Line is the 1-based line number of the defect.
	Line int
	// Msg describes the defect.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Manifest is the parsed content of a digest file.
type Manifest struct {
	// Files holds one record per entry, keyed by path. All records
	// start out with StatusUnseen.
	Files *index.FileIndex

	// Algorithm is the digest algorithm used by the entries. It is
	// None when the manifest contains no digest lines and no algorithm
	// was requested.
	Algorithm digest.Algorithm

	// ExcludeMarker is the persisted exclude marker option, empty when
	// the manifest does not carry one.
	ExcludeMarker string

	// HasChecksum records whether the file carried a crc trailer.
	HasChecksum bool
}

// LoadOptions configures Load and Parse.
type LoadOptions struct {
	// Algorithm, when not None, is the required digest algorithm.
	// Entries using a different algorithm fail the load.
	Algorithm digest.Algorithm

	// Confirm, when set, is consulted on a checksum mismatch and the
	// load continues only if it returns true. When nil a mismatch is
	// fatal.
	Confirm func(msg string) bool
}

// Load reads and parses the manifest at path. A missing file is
// reported with the error from os.Open so callers can distinguish it
// from a parse failure.
func Load(path string, opts LoadOptions) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path, opts)
}

// Parse reads manifest content from r. The path is used in error
// messages only.
func Parse(r io.Reader, path string, opts LoadOptions) (*Manifest, error) {
	p := &parser{
		path: path,
		opts: opts,
		m: &Manifest{
			Files:     index.NewFileIndex(),
			Algorithm: opts.Algorithm,
		},
	}

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			p.line++
			if perr := p.parseLine(strings.TrimSuffix(raw, "\n")); perr != nil {
				return nil, perr
			}
			// The checksum covers every line before the crc line, so
			// fold the raw bytes in only after dispatch.
			p.crc = crc32.Update(p.crc, crc32.IEEETable, []byte(raw))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return p.m, nil
}

// pending carries metadata comments forward until a digest or symlink
// line commits them into a record.
type pending struct {
	mtime  int64
	size   int64
	target string
}

type parser struct {
	path        string
	opts        LoadOptions
	m           *Manifest
	crc         uint32
	line        int
	pend        pending
	eofSeen     bool
	superfluous bool
}

func (p *parser) errorf(cause error, format string, args ...interface{}) error {
	return &ParseError{
		Path: p.path,
		Line: p.line,
		Msg:  fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

func (p *parser) parseLine(text string) error {
	i := 0
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	if i == len(text) {
		// Blank separator lines drop any pending metadata.
		p.pend = pending{}
		return nil
	}
	if p.eofSeen {
		if !p.superfluous {
			logger.Warn("ignoring content after eof marker", "path", p.path, "line", p.line)
			p.superfluous = true
		}
		return nil
	}
	if text[i] == '#' {
		if i+1 < len(text) && text[i+1] == ':' {
			return p.parseKeywords(text[i+2:])
		}
		// Free-form comment. Pending metadata survives.
		return nil
	}
	return p.parseDigestLine(text[i:])
}

// parseKeywords handles a "#:" metadata line. Several keywords may
// share one line; target and symlink consume the rest of the line.
func (p *parser) parseKeywords(text string) error {
	i := 0
	for {
		for i < len(text) && isSpace(text[i]) {
			i++
		}
		if i == len(text) {
			return nil
		}
		start := i
		for i < len(text) && (isAlpha(text[i]) || text[i] == '\\') {
			i++
		}
		if i < len(text) && !isSpace(text[i]) {
			return p.errorf(nil, "unparseable comment line")
		}
		switch word := text[start:i]; word {
		case "mtime":
			v, rest, err := p.scanInt(text, i)
			if err != nil {
				return err
			}
			p.pend.mtime = v
			i = rest
		case "size":
			v, rest, err := p.scanInt(text, i)
			if err != nil {
				return err
			}
			p.pend.size = v
			i = rest
		case "target", `target\`:
			val, err := p.restArg(text, i, word)
			if err != nil {
				return err
			}
			p.pend.target = val
			return nil
		case "symlink", `symlink\`:
			name, err := p.restArg(text, i, word)
			if err != nil {
				return err
			}
			return p.commitSymlink(name)
		case "option":
			return p.parseOption(text, i)
		case "crc":
			rest, err := p.checkChecksum(text, i)
			if err != nil {
				return err
			}
			i = rest
		case "eof":
			p.eofSeen = true
		default:
			return p.errorf(nil, "unparseable comment line")
		}
	}
}

// scanInt reads a decimal integer argument and returns it with the
// index following it.
func (p *parser) scanInt(text string, i int) (int64, int, error) {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	start := i
	if i < len(text) && text[i] == '-' {
		i++
	}
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i < len(text) && !isSpace(text[i]) {
		return 0, 0, p.errorf(nil, "unparseable comment line")
	}
	v, err := strconv.ParseInt(text[start:i], 10, 64)
	if err != nil {
		return 0, 0, p.errorf(nil, "unparseable comment line")
	}
	return v, i, nil
}

// restArg returns the rest of the line after a single separator space,
// unescaping it when the keyword carries the escape marker.
func (p *parser) restArg(text string, i int, word string) (string, error) {
	if i == len(text) {
		return "", p.errorf(nil, "unparseable comment line")
	}
	i++
	val := text[i:]
	if !strings.HasSuffix(word, `\`) {
		return val, nil
	}
	un, err := Unescape(val)
	if err != nil {
		return "", p.errorf(err, "bad escape after %q: %v", word, err)
	}
	return un, nil
}

func (p *parser) parseOption(text string, i int) error {
	if i < len(text) {
		i++
	}
	arg := text[i:]
	val, ok := strings.CutPrefix(arg, "--exclude-marker=")
	if !ok {
		return p.errorf(nil, "unknown option %q", arg)
	}
	p.m.ExcludeMarker = val
	return nil
}

// checkChecksum validates a crc keyword against the checksum of all
// preceding lines.
func (p *parser) checkChecksum(text string, i int) (int, error) {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	start := i
	for i < len(text) && !isSpace(text[i]) {
		i++
	}
	tok := text[start:i]
	hexPart, ok := strings.CutPrefix(tok, "0x")
	if !ok || len(hexPart) != 8 {
		return 0, p.errorf(nil, "unparseable crc value %q", tok)
	}
	v, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return 0, p.errorf(nil, "unparseable crc value %q", tok)
	}
	p.m.HasChecksum = true
	if uint32(v) != p.crc {
		msg := fmt.Sprintf("recorded 0x%08x, computed 0x%08x", uint32(v), p.crc)
		if p.opts.Confirm != nil && p.opts.Confirm(msg) {
			logger.Warn("continuing despite checksum mismatch", "path", p.path, "detail", msg)
			return i, nil
		}
		return 0, p.errorf(ErrChecksumMismatch, "checksum mismatch: %s", msg)
	}
	return i, nil
}

func (p *parser) commitSymlink(name string) error {
	rec := &types.FileRecord{
		Status:     types.StatusUnseen,
		MTime:      p.pend.mtime,
		Size:       p.pend.size,
		LinkTarget: p.pend.target,
	}
	if err := p.m.Files.Insert(name, rec); err != nil {
		return p.errorf(err, "duplicate file name %q", name)
	}
	p.pend = pending{}
	return nil
}

// parseDigestLine handles an entry line: an optional escape marker, a
// hex digest, a separator, a type indicator and the file name.
func (p *parser) parseDigestLine(text string) error {
	i := 0
	escaped := false
	if text[i] == '\\' {
		escaped = true
		i++
	}
	start := i
	for i < len(text) && isHexDigit(text[i]) {
		i++
	}
	if i == len(text) || !isSpace(text[i]) {
		return p.errorf(nil, "malformed manifest line")
	}
	hexLen := i - start
	algo := digest.ForSize(hexLen / 2)
	if hexLen%2 != 0 || algo == digest.None {
		return p.errorf(nil, "no proper hex digest on line")
	}
	if p.m.Algorithm == digest.None {
		p.m.Algorithm = algo
	} else if algo != p.m.Algorithm {
		return p.errorf(ErrAlgorithmMismatch,
			"%s digest in a %s manifest", algo, p.m.Algorithm)
	}
	dg, err := digest.ParseHex(text[start:i])
	if err != nil {
		return p.errorf(nil, "no proper hex digest on line")
	}

	i++
	if i >= len(text) || (text[i] != ' ' && text[i] != '*') {
		return p.errorf(nil, "missing type indicator after digest")
	}
	i++

	name := text[i:]
	if escaped {
		name, err = Unescape(name)
		if err != nil {
			return p.errorf(err, "bad escape in file name: %v", err)
		}
	}

	rec := &types.FileRecord{
		Status:     types.StatusUnseen,
		MTime:      p.pend.mtime,
		Size:       p.pend.size,
		Digest:     dg,
		LinkTarget: p.pend.target,
	}
	if err := p.m.Files.Insert(name, rec); err != nil {
		return p.errorf(err, "duplicate file name %q", name)
	}
	p.pend = pending{}
	return nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// defaultNames lists the recognized manifest basenames in detection
// order. sha128sum.txt is a historical spelling of sha1sum.txt.
var defaultNames = []struct {
	name string
	algo digest.Algorithm
}{
	{"md5sum.txt", digest.MD5},
	{"sha1sum.txt", digest.SHA1},
	{"sha128sum.txt", digest.SHA1},
	{"sha256sum.txt", digest.SHA256},
	{"sha512sum.txt", digest.SHA512},
}

// Detect looks for a default manifest basename in dir. It returns
// ErrNoManifest when none exists and ErrMultipleManifests when the
// choice is ambiguous.
func Detect(dir string) (string, digest.Algorithm, error) {
	var (
		found string
		algo  digest.Algorithm
	)
	for _, d := range defaultNames {
		if _, err := os.Stat(filepath.Join(dir, d.name)); err != nil {
			continue
		}
		if found != "" {
			return "", digest.None, fmt.Errorf(
				"%w in %s: select one with --file", ErrMultipleManifests, dir)
		}
		found = d.name
		algo = d.algo
	}
	if found == "" {
		return "", digest.None, ErrNoManifest
	}
	return found, algo, nil
}

// DefaultName returns the canonical manifest basename for an
// algorithm, or the empty string when the algorithm has none.
func DefaultName(algo digest.Algorithm) string {
	switch algo {
	case digest.MD5:
		return "md5sum.txt"
	case digest.SHA1:
		return "sha1sum.txt"
	case digest.SHA256:
		return "sha256sum.txt"
	case digest.SHA512:
		return "sha512sum.txt"
	default:
		return ""
	}
}
