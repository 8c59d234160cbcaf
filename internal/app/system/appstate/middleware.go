package appstate

import (
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/stratassr/internal/app/system/history"
	"go.uber.org/zap"
)

// RouterMiddleware turns ActionCallHistory into history calls. The action
// does not reach the reducer; the resulting transition does, through SyncHistory.
func RouterMiddleware(h history.History) Middleware {
	return func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				if a.Type != ActionCallHistory {
					return next(a)
				}
				call, ok := a.Payload.(HistoryCall)
				if !ok {
					return fmt.Errorf("appstate: %s payload is %T, want HistoryCall", a.Type, a.Payload)
				}
				switch call.Method {
				case "push":
					return h.Push(call.Path, call.State)
				case "replace":
					return h.Replace(call.Path, call.State)
				case "go":
					h.Go(call.Delta)
					return nil
				default:
					return fmt.Errorf("appstate: unknown history method %q", call.Method)
				}
			}
		}
	}
}

// SyncHistory dispatches ActionLocationChange for every later transition of
// h. The current location is not dispatched, so a preloaded router slice is
// kept as is.
func SyncHistory(s *Store, h history.History) (unlisten func()) {
	return h.Listen(func(loc history.Location, action history.Action) {
		_ = s.Dispatch(LocationChanged(loc, action))
	})
}

// LoggerMiddleware logs every action with the keys it changed.
func LoggerMiddleware(logger *zap.Logger) Middleware {
	return func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				prev := api.GetState()
				start := time.Now()
				err := next(a)
				if err != nil {
					logger.Debug("action failed",
						zap.String("action", a.Type),
						zap.Error(err))
					return err
				}
				logger.Debug("action",
					zap.String("action", a.Type),
					zap.Strings("changed", changedKeys(prev, api.GetState())),
					zap.Duration("took", time.Since(start)))
				return nil
			}
		}
	}
}

func changedKeys(prev, next State) []string {
	var keys []string
	for k, v := range next {
		if !Equal(State{k: prev[k]}, State{k: v}) {
			keys = append(keys, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
