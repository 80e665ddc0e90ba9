package logsvc

import (
	"fmt"
	"io"
	"os"

	gokitlog "github.com/go-kit/log"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/gradebook/core"
)

// callerDepth skips the RollbarLogger frames so "caller" points at the code that logged.
const callerDepth = 5

// RollbarLogger reports to rollbar and writes logfmt lines locally.
type RollbarLogger struct {
	sink gokitlog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(w io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	sink := gokitlog.NewLogfmtLogger(gokitlog.NewSyncWriter(w))
	sink = gokitlog.With(sink, "ts", gokitlog.DefaultTimestampUTC, "caller", gokitlog.Caller(callerDepth), "component", component)
	return &RollbarLogger{sink: sink}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Identity
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var idSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set authenticated account
		if id, ok := arg.(core.Identity); ok {
			if !idSet { // only set one Identity
				rollbar.SetPerson(id.ID, id.Username, "")
				idSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !idSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	kvs := []interface{}{"level", level, "msg", msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			kvs = append(kvs, "err", a.Error())
		case map[string]interface{}:
			for k, v := range a {
				kvs = append(kvs, k, v)
			}
		case core.Identity:
			kvs = append(kvs, "account", a.Username)
		default:
			kvs = append(kvs, "extra", fmt.Sprintf("%+v", a))
		}
	}
	_ = l.sink.Log(kvs...)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("debug", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("info", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("warn", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("error", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("fatal", msg, args)
	rollbar.Wait()
	os.Exit(1)
}
