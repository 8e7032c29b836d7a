/*
Copyright The Database Backup Orchestrator Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cronexpr_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dbbackup/orchestrator/pkg/cronexpr"
)

func TestCronExpr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "cronexpr suite")
}

func mustParseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

var _ = Describe("NextRun", func() {
	It("normalizes @hourly across the minute boundary", func() {
		next, err := cronexpr.NextRun("@hourly", mustParseTime("2026-02-17T10:59:30Z"))
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(mustParseTime("2026-02-17T11:00:00Z")))
	})

	It("steps a */5 minute expression forward", func() {
		next, err := cronexpr.NextRun("*/5 * * * *", mustParseTime("2026-01-01T10:02:15Z"))
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(mustParseTime("2026-01-01T10:05:00Z")))
	})

	It("treats day-of-week 7 as Sunday (0)", func() {
		next7, err := cronexpr.NextRun("0 0 * * 7", mustParseTime("2026-01-01T00:00:00Z"))
		Expect(err).NotTo(HaveOccurred())
		next0, err := cronexpr.NextRun("0 0 * * 0", mustParseTime("2026-01-01T00:00:00Z"))
		Expect(err).NotTo(HaveOccurred())
		Expect(next7).To(Equal(next0))
	})

	It("unions day-of-month and day-of-week when both are explicit", func() {
		// 2026-03-01 is a Sunday; "1" also matches day-of-month, so both
		// clauses agree here. Pick a month where they diverge instead.
		// 2026-04-15 is a Wednesday (dow=3); with dom=1,15 and dow=3 explicit,
		// a match occurs on day 1, day 15 OR any Wednesday.
		next, err := cronexpr.NextRun("0 0 1,15 * 3", mustParseTime("2026-04-02T00:00:00Z"))
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Weekday() == time.Wednesday || next.Day() == 1 || next.Day() == 15).To(BeTrue())
	})

	It("satisfies the law cronEval(e,t) > t and matches e", func() {
		expr, err := cronexpr.Parse("*/7 3-5 * * *")
		Expect(err).NotTo(HaveOccurred())
		after := mustParseTime("2026-06-10T00:00:00Z")
		next, err := expr.NextRun(after)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.After(after)).To(BeTrue())
		Expect(next.Minute() % 7).To(Equal(0))
		Expect(next.Hour()).To(BeNumerically(">=", 3))
		Expect(next.Hour()).To(BeNumerically("<=", 5))
	})

	It("is idempotent at the boundary: cronEval(e, cronEval(e,t)-1s) == cronEval(e,t)", func() {
		expr, err := cronexpr.Parse("*/10 * * * *")
		Expect(err).NotTo(HaveOccurred())
		after := mustParseTime("2026-06-10T00:03:00Z")
		next, err := expr.NextRun(after)
		Expect(err).NotTo(HaveOccurred())
		again, err := expr.NextRun(next.Add(-time.Second))
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(next))
	})

	It("rejects expressions without 5 fields", func() {
		_, err := cronexpr.NextRun("bad cron", time.Now())
		Expect(err).To(MatchError(ContainSubstring("must contain 5 fields")))
	})

	It("rejects a zero step", func() {
		_, err := cronexpr.NextRun("*/0 * * * *", time.Now())
		Expect(err).To(MatchError(ContainSubstring("Step must be > 0")))
	})

	It("rejects out-of-range values", func() {
		_, err := cronexpr.NextRun("60 * * * *", time.Now())
		Expect(err).To(MatchError(ContainSubstring("out of range")))
	})

	It("rejects a reversed range", func() {
		_, err := cronexpr.NextRun("10-5 * * * *", time.Now())
		Expect(err).To(HaveOccurred())
	})

	It("raises unsatisfiable for an impossible day-of-month", func() {
		_, err := cronexpr.NextRun("0 0 31 2 *", mustParseTime("2026-01-01T00:00:00Z"))
		Expect(err).To(HaveOccurred())
	})
})
