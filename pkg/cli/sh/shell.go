package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/ant.go/pkg/ant/env"
	fx "github.com/robotalks/ant.go/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session

	openEnv func(*env.Config) (*env.Env, error)
}

// Session is an opened stick with its loop running in background.
type Session struct {
	Device string
	Ctx    context.Context
	Cancel func()
	Env    *env.Env
	Loop   *fx.Loop

	done chan struct{}
}

const (
	shellKey       = "$shell"
	unopenedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,

		openEnv: (*env.Config).NewEnv,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unopenedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SessionFrom gets the current Session from ishell context.
func SessionFrom(c *ishell.Context) *Session {
	return ShellFrom(c).Session
}

// MustBeOpen wraps command func requires an opened stick.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("stick not opened"))
			return
		}
		fn(c)
	}
}

// Output prints v as JSON if requested, otherwise the text.
func Output(c *ishell.Context, v interface{}, text string) error {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Println(text)
	return nil
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the stick specified by device, or the configured one if
// device is empty. The current session is closed first if it holds the
// same device, otherwise only after the new one is opened.
func (s *Shell) Open(device string) error {
	conf := *s.Config
	if device != "" {
		conf.Device = device
	}
	if s.Session != nil && s.Session.Device == conf.Device {
		s.Close()
	}
	openEnv := s.openEnv
	if openEnv == nil {
		openEnv = (*env.Config).NewEnv
	}
	e, err := openEnv(&conf)
	if err != nil {
		return err
	}
	s.Close()
	session := &Session{Device: conf.Device, Env: e, Loop: fx.NewLoop(), done: make(chan struct{})}
	session.Ctx, session.Cancel = context.WithCancel(context.Background())
	session.Loop.Add(e)
	s.Session = session
	go func() {
		defer close(session.done)
		if err := session.Loop.Run(session.Ctx); err != nil && err != context.Canceled {
			glog.Errorf("stick %s stopped: %v", conf.Device, err)
		}
	}()
	s.setPrompt(fmt.Sprintf("%s#%d > ", conf.Device, e.Stick.SerialNumber()))
	return nil
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Close stops the loop and closes the current stick.
func (s *Shell) Close() {
	if s.Session != nil {
		s.Session.Cancel()
		<-s.Session.done
		if s.Session.Env != nil {
			s.Session.Env.Close()
		}
		s.Session = nil
		s.setPrompt(unopenedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if s.AutoOpen {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Device)
		}
		if err := s.Open(""); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Device, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a stick.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if err := ShellFrom(c).Open(device); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current stick.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"x"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
