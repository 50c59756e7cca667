// Package cli is a small flag framework for the coolr command:
// long/short options, typed values, and usage output that wraps to
// the width of the controlling terminal.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	NeedsArg() bool
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) NeedsArg() bool     { return true }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) NeedsArg() bool { return false }

type Flag struct {
	Name      string
	Shorthand string
	Usage     string
	Value     Value
	ArgName   string
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	order      []*Flag
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, argName string) {
	*p = value
	f.add(&Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: &stringValue{p}, ArgName: argName})
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.add(&Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: &boolValue{p}})
}

func (f *FlagSet) add(flag *Flag) {
	if flag.Name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[flag.Name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", flag.Name))
	}
	f.flags[flag.Name] = flag
	if flag.Shorthand != "" {
		if _, ok := f.shorthands[flag.Shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", flag.Shorthand))
		}
		f.shorthands[flag.Shorthand] = flag
	}
	f.order = append(f.order, flag)
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		var flag *Flag
		var inline string
		var hasInline bool
		if strings.HasPrefix(arg, "--") {
			name := strings.TrimPrefix(arg, "--")
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name, inline, hasInline = name[:eq], name[eq+1:], true
			}
			flag = f.flags[name]
		} else {
			flag = f.shorthands[strings.TrimPrefix(arg, "-")]
		}
		if flag == nil {
			return fmt.Errorf("unknown option '%s'", arg)
		}

		switch {
		case hasInline:
			if err := flag.Value.Set(inline); err != nil {
				return err
			}
		case flag.Value.NeedsArg():
			if i+1 >= len(arguments) {
				return fmt.Errorf("option '%s' requires an argument", arg)
			}
			i++
			if err := flag.Value.Set(arguments[i]); err != nil {
				return err
			}
		default:
			if err := flag.Value.Set(""); err != nil {
				return err
			}
		}
	}
	return nil
}

// App ties a flag set to a program description and an action.
type App struct {
	Name        string
	Synopsis    string
	Description string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	var help bool
	a.FlagSet.Bool(&help, "help", "h", false, "Print this help message and exit.")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.Name, err)
		a.PrintUsage(os.Stderr)
		return err
	}
	if help {
		a.PrintUsage(os.Stdout)
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

func (a *App) PrintUsage(w *os.File) {
	width := 80
	if tw, _, err := term.GetSize(int(w.Fd())); err == nil && tw > 40 {
		width = tw
	}

	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		for _, line := range wrap(a.Description, width) {
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, "Options:")

	flags := append([]*Flag(nil), a.FlagSet.order...)
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	for _, flag := range flags {
		head := "  --" + flag.Name
		if flag.ArgName != "" {
			head += " <" + flag.ArgName + ">"
		}
		if flag.Shorthand != "" {
			head += ", -" + flag.Shorthand
		}
		fmt.Fprintf(w, "%-24s %s\n", head, flag.Usage)
	}
}

func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
