package parser

import (
	"regexp"

	"github.com/shellfall/engine/v2/internal/util"
)

// Countries lists every nation page the fetch walks for vehicle links.
var Countries = []string{
	"japan",
	"usa",
	"germany",
	"ussr",
	"uk",
	"panasia",
	"france",
	"commonwealth",
	"italy",
	"pan_america",
	"europe",
}

// shipLinkRe matches vehicle links on a country listing page. The trailing
// digits keep country and class listing links out.
var shipLinkRe = regexp.MustCompile(`/games/[a-z_]+/vehicles/(\w+\d+)`)

// ParseShipList extracts every vehicle ID linked from a country page. Ships
// are linked more than once per page, so the result is deduplicated in
// first-seen order.
func (p *Parser) ParseShipList(page string) []string {
	matches := shipLinkRe.FindAllStringSubmatch(page, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return util.Dedupe(ids)
}
