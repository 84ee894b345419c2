package portgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrParse is matched by every error produced while reading the text format.
var ErrParse = errors.New("parse error")

// ParseError describes malformed input at a specific line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Is allows errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// lineReader yields non-blank lines with their line numbers.
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{scanner: s}
}

func (lr *lineReader) next(what string) (string, error) {
	for lr.scanner.Scan() {
		lr.line++
		text := strings.TrimSpace(lr.scanner.Text())
		if text != "" {
			return text, nil
		}
	}
	if err := lr.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", what, err)
	}
	return "", &ParseError{Line: lr.line + 1, Msg: fmt.Sprintf("unexpected end of input, expected %s", what)}
}

func (lr *lineReader) nextInt(what string) (int, error) {
	text, err := lr.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &ParseError{Line: lr.line, Msg: fmt.Sprintf("expected integer %s, got %q", what, text)}
	}
	return v, nil
}

func (lr *lineReader) nextCount(what string) (int, error) {
	v, err := lr.nextInt(what)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, &ParseError{Line: lr.line, Msg: fmt.Sprintf("negative %s %d", what, v)}
	}
	return v, nil
}

// ReadGraph reads one graph in the text format:
//
//	N                      node count
//	L                      label count of node 0
//	label...               L lines, one integer each
//	M                      edge count of node 0
//	srcport dst dstport    M lines; the source is node 0
//	...                    repeated for nodes 1..N-1
func ReadGraph(r io.Reader) (*Graph, error) {
	return readGraph(newLineReader(r))
}

// ReadProblem reads the target graph followed by the pattern graph from a
// single stream.
func ReadProblem(r io.Reader) (target, pattern *Graph, err error) {
	lr := newLineReader(r)
	target, err = readGraph(lr)
	if err != nil {
		return nil, nil, fmt.Errorf("target graph: %w", err)
	}
	pattern, err = readGraph(lr)
	if err != nil {
		return nil, nil, fmt.Errorf("pattern graph: %w", err)
	}
	return target, pattern, nil
}

func readGraph(lr *lineReader) (*Graph, error) {
	numNodes, err := lr.nextCount("node count")
	if err != nil {
		return nil, err
	}

	labels := make([][]int, numNodes)
	var edges []Edge
	for i := 0; i < numNodes; i++ {
		numLabels, err := lr.nextCount("label count")
		if err != nil {
			return nil, err
		}
		labels[i] = make([]int, numLabels)
		for j := 0; j < numLabels; j++ {
			if labels[i][j], err = lr.nextInt("label"); err != nil {
				return nil, err
			}
		}

		numEdges, err := lr.nextCount("edge count")
		if err != nil {
			return nil, err
		}
		for j := 0; j < numEdges; j++ {
			text, err := lr.next("edge")
			if err != nil {
				return nil, err
			}
			fields := strings.Fields(text)
			if len(fields) != 3 {
				return nil, &ParseError{Line: lr.line, Msg: fmt.Sprintf("edge needs 3 fields, got %d", len(fields))}
			}
			dst, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, &ParseError{Line: lr.line, Msg: fmt.Sprintf("expected integer destination node, got %q", fields[1])}
			}
			if dst < 0 || dst >= numNodes {
				return nil, &ParseError{Line: lr.line, Msg: fmt.Sprintf("destination node %d out of range [0,%d)", dst, numNodes)}
			}
			edges = append(edges, Edge{Src: i, SrcPort: fields[0], Dst: dst, DstPort: fields[2]})
		}
	}

	return Build(labels, edges)
}
