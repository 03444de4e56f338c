// Command dataapi sends statements to a Data API server over gRPC.
//
//	dataapi -addr localhost:9090 -sql 'SELECT * FROM t WHERE id = :id' -p id=long:5
//	dataapi -batch -sql 'INSERT INTO t (id) VALUES (:id)' -set id=long:1 -set id=long:2
//
// A parameter is name=kind:value with kind one of long, double, bool,
// string, blob (raw text, base64 encoded on send) or null.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SimonWaldherr/dataapi/internal/server"
	"github.com/SimonWaldherr/dataapi/internal/value"
)

type outputMode string

const (
	modeJSON outputMode = "json"
	modeCSV  outputMode = "csv"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dataapi:", err)
		os.Exit(1)
	}
}

type options struct {
	addr     string
	sql      string
	database string
	batch    bool
	mode     outputMode
	timeout  time.Duration
	params   paramList
	sets     setList
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("dataapi", flag.ContinueOnError)
	fs.StringVar(&o.addr, "addr", "localhost:9090", "gRPC address of the server")
	fs.StringVar(&o.sql, "sql", "", "statement to run")
	fs.StringVar(&o.database, "db", "", "database to select first")
	fs.BoolVar(&o.batch, "batch", false, "run a batch, one parameter set per -set flag")
	mode := fs.String("mode", string(modeJSON), "output mode for records: json or csv")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "request timeout")
	fs.Var(&o.params, "p", "parameter name=kind:value (repeatable)")
	fs.Var(&o.sets, "set", "batch parameter set, comma separated name=kind:value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.mode = outputMode(*mode)
	switch {
	case o.sql == "":
		return o, errors.New("-sql is required")
	case o.mode != modeJSON && o.mode != modeCSV:
		return o, fmt.Errorf("unknown mode %q", *mode)
	case o.batch && len(o.params) > 0:
		return o, errors.New("-p cannot be used with -batch; use -set")
	case !o.batch && len(o.sets) > 0:
		return o, errors.New("-set requires -batch")
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	client, err := server.NewClient(o.addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if o.batch {
		res, err := client.BatchExecuteStatement(ctx, &server.BatchExecuteStatementInput{
			SQL:           o.sql,
			Database:      o.database,
			ParameterSets: o.sets,
		})
		if err != nil {
			return err
		}
		return writeJSON(out, res)
	}

	res, err := client.ExecuteStatement(ctx, &server.ExecuteStatementInput{
		SQL:        o.sql,
		Database:   o.database,
		Parameters: o.params,
	})
	if err != nil {
		return err
	}
	if o.mode == modeCSV && res.Records != nil {
		return writeCSV(out, res.Records)
	}
	return writeJSON(out, res)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(w io.Writer, records []value.Record) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		row := make([]string, len(rec))
		for i, f := range rec {
			switch v := f.(type) {
			case value.Null:
			case value.Blob:
				row[i] = string(v)
			default:
				row[i] = value.Format(f)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// paramList collects repeated -p flags.
type paramList []value.NamedParameter

func (l *paramList) String() string { return fmt.Sprint(len(*l)) }

func (l *paramList) Set(s string) error {
	p, err := parseParam(s)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

// setList collects repeated -set flags, each one parameter set.
type setList [][]value.NamedParameter

func (l *setList) String() string { return fmt.Sprint(len(*l)) }

func (l *setList) Set(s string) error {
	set := []value.NamedParameter{}
	if s != "" {
		for _, item := range strings.Split(s, ",") {
			p, err := parseParam(item)
			if err != nil {
				return err
			}
			set = append(set, p)
		}
	}
	*l = append(*l, set)
	return nil
}

func parseParam(s string) (value.NamedParameter, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return value.NamedParameter{}, fmt.Errorf("parameter %q: want name=kind:value", s)
	}
	kind, raw, _ := strings.Cut(rest, ":")
	f, err := parseField(kind, raw)
	if err != nil {
		return value.NamedParameter{}, fmt.Errorf("parameter %s: %w", name, err)
	}
	return value.NamedParameter{Name: name, Value: f}, nil
}

func parseField(kind, raw string) (value.Field, error) {
	switch strings.ToLower(kind) {
	case "long":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid long %q", raw)
		}
		return value.Long(n), nil
	case "double":
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double %q", raw)
		}
		return value.Double(d), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", raw)
		}
		return value.Boolean(b), nil
	case "string":
		return value.String(raw), nil
	case "blob":
		return value.NewBlob([]byte(raw)), nil
	case "null":
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
