// Package report renders lifecycle reports for CI systems.
package report

import (
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/lifecycle"
)

// WriteJUnit writes rep as a JUnit XML document with one testcase per
// hook. Failed hooks carry a <failure> with the error code; skipped hooks
// carry <skipped>.
func WriteJUnit(w io.Writer, reports ...*lifecycle.Report) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "formulary")

	var total, failures, skipped int
	var elapsed float64
	for _, rep := range reports {
		t, f, s, e := addSuite(suites, rep)
		total += t
		failures += f
		skipped += s
		elapsed += e
	}
	suites.CreateAttr("tests", fmt.Sprint(total))
	suites.CreateAttr("failures", fmt.Sprint(failures))
	suites.CreateAttr("skipped", fmt.Sprint(skipped))
	suites.CreateAttr("time", seconds(elapsed))

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to write junit report")
	}
	return nil
}

func addSuite(parent *etree.Element, rep *lifecycle.Report) (total, failures, skipped int, elapsed float64) {
	suite := parent.CreateElement("testsuite")
	suite.CreateAttr("name", rep.Formula)

	for _, h := range rep.Hooks {
		total++
		elapsed += h.Duration.Seconds()

		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", rep.Formula+"@"+rep.PkgVersion)
		tc.CreateAttr("name", string(h.Hook))
		tc.CreateAttr("time", seconds(h.Duration.Seconds()))

		switch h.Status {
		case lifecycle.StatusFailed:
			failures++
			fail := tc.CreateElement("failure")
			fail.CreateAttr("type", string(errors.GetErrorCode(h.Err)))
			if h.Err != nil {
				fail.CreateAttr("message", h.Err.Error())
				if out, ok := errors.GetErrorDetails(h.Err)["output"].(string); ok && out != "" {
					fail.CreateCharData(out)
				}
			}
		case lifecycle.StatusSkipped:
			skipped++
			sk := tc.CreateElement("skipped")
			if h.Detail != "" {
				sk.CreateAttr("message", h.Detail)
			}
		default:
			if h.Detail != "" {
				tc.CreateElement("system-out").CreateCharData(h.Detail)
			}
		}
	}

	suite.CreateAttr("tests", fmt.Sprint(total))
	suite.CreateAttr("failures", fmt.Sprint(failures))
	suite.CreateAttr("skipped", fmt.Sprint(skipped))
	suite.CreateAttr("time", seconds(elapsed))
	return total, failures, skipped, elapsed
}

func seconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
