package ledger

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEvolve(t *testing.T) {
	Convey("Given a store with repeated failures", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.LogTask("docker image rejected by registry", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker build broke again", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker push timed out", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("timed out waiting for healthcheck", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("routine cleanup pass", true, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("It should mine recurring failure tokens into rules", func() {
				So(len(added), ShouldEqual, 2)

				// Highest count first: docker appears in three failures,
				// timed in two
				So(added[0].Rule, ShouldEqual, `caution advised for tasks involving "docker" (3 prior failures)`)
				So(added[1].Rule, ShouldEqual, `caution advised for tasks involving "timed" (2 prior failures)`)
				So(added[0].Source, ShouldEqual, RuleSourceAuto)
			})

			Convey("And the rules should be durable", func() {
				rules, err := store.ListRules()
				So(err, ShouldBeNil)
				So(len(rules), ShouldEqual, 2)
			})

			Convey("And a second pass should add nothing new", func() {
				again, err := store.Evolve()
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
			})
		})
	})
}

func TestEvolveThreshold(t *testing.T) {
	Convey("Given failures that never repeat a token", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.LogTask("kubernetes upgrade stalled", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("migration script crashed", false, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("It should add no rules", func() {
				So(added, ShouldBeEmpty)
			})
		})
	})
}

func TestEvolveIgnoresSuccesses(t *testing.T) {
	Convey("Given a token that repeats only in successes", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.LogTask("docker deploy went fine", true, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker rollout completed", true, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker cache warmed", true, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("It should add no rules", func() {
				So(added, ShouldBeEmpty)
			})
		})
	})
}

func TestEvolveCountsDistinctFailures(t *testing.T) {
	Convey("Given one failure that repeats a token internally", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.LogTask("docker docker docker everywhere", false, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("One failure counts once no matter how often it repeats the word", func() {
				So(added, ShouldBeEmpty)
			})
		})
	})
}

func TestEvolveSuppression(t *testing.T) {
	Convey("Given an existing rule already covering a token", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.AddRule("avoid docker deployments on fridays", RuleSourceManual)
		So(err, ShouldBeNil)

		_, err = store.LogTask("docker image rejected", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker build broke", false, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("The covered token should be skipped", func() {
				So(added, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an existing rule that mentions the token capitalized", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.AddRule("Docker needs the buildkit flag here", RuleSourceManual)
		So(err, ShouldBeNil)

		_, err = store.LogTask("docker image rejected", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("docker build broke", false, 0)
		So(err, ShouldBeNil)

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("Suppression matches the rule text as written, so the rule is still mined", func() {
				So(len(added), ShouldEqual, 1)
				So(added[0].Rule, ShouldContainSubstring, `"docker"`)
			})
		})
	})
}

func TestEvolveWindow(t *testing.T) {
	Convey("Given old failures pushed out of the recent window", t, func() {
		store, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		_, err = store.LogTask("legacy widget breakage", false, 0)
		So(err, ShouldBeNil)
		_, err = store.LogTask("legacy widget snapped", false, 0)
		So(err, ShouldBeNil)

		for i := 0; i < evolveTaskWindow; i++ {
			_, err = store.LogTask("routine housekeeping pass", true, 0)
			So(err, ShouldBeNil)
		}

		Convey("When the evolution pass runs", func() {
			added, err := store.Evolve()
			So(err, ShouldBeNil)

			Convey("Tokens outside the window should not produce rules", func() {
				So(added, ShouldBeEmpty)
			})
		})
	})
}
