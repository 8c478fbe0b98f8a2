package server

import (
	"fmt"
	"net/http"
	"strings"

	"nvd-api/internal/models"

	"github.com/sirupsen/logrus"
)

type route struct {
	name        string
	methods     []string
	path        string
	description string
	handler     func(*Server, http.ResponseWriter, *http.Request)
}

// routes is the single table both registration and the /help catalog read
func routes() []route {
	return []route{
		{
			name:        "index",
			methods:     []string{http.MethodGet},
			path:        "/{$}",
			description: "API base URL",
			handler:     (*Server).indexHandler,
		},
		{
			name:        "routes_info",
			methods:     []string{http.MethodGet},
			path:        "/help",
			description: "Print all defined routes and their descriptions.",
			handler:     (*Server).helpHandler,
		},
		{
			name:        "get_severity_count",
			methods:     []string{http.MethodGet},
			path:        "/severity/dist",
			description: "Base severity distribution.",
			handler:     (*Server).severityDistHandler,
		},
		{
			name:        "get_severity_year",
			methods:     []string{http.MethodGet},
			path:        "/severity/year",
			description: "Base severity change over time.",
			handler:     (*Server).severityYearHandler,
		},
		{
			name:        "get_worst",
			methods:     []string{http.MethodGet},
			path:        "/worst_products_platforms/{prod_or_plat}",
			description: "Get top 10 worst products/platforms. Variable prod_or_plat = [product,platform]",
			handler:     (*Server).worstHandler,
		},
		{
			name:        "get_ver_impact",
			methods:     []string{http.MethodGet},
			path:        "/top_vul/{cvss_ver}/{score}",
			description: "Get top 10 vulnerabilities based on the score and cvss version. cvss_ver = [2,3] & score = [impact_score,exploitability_score]",
			handler:     (*Server).topVulHandler,
		},
		{
			name:        "get_info",
			methods:     []string{http.MethodGet},
			path:        "/cve_or_prod/{cve_or_prod}/{id}",
			description: "Query information about either a CVE (https://nvd.nist.gov/vuln/search) or a product CPE criteria (https://nvd.nist.gov/products/cpe/search). Variable cve_or_prod = [cve,product]",
			handler:     (*Server).lookupHandler,
		},
	}
}

// pattern is the ServeMux pattern for the route's primary method
func (rt route) pattern() string {
	return fmt.Sprintf("%s %s", rt.methods[0], rt.path)
}

// Catalog describes every registered route. GET routes also answer HEAD.
func Catalog() []models.RouteInfo {
	table := routes()
	infos := make([]models.RouteInfo, 0, len(table))
	for _, rt := range table {
		methods := append([]string(nil), rt.methods...)
		for _, m := range rt.methods {
			if m == http.MethodGet {
				methods = append(methods, http.MethodHead)
			}
		}
		infos = append(infos, models.RouteInfo{
			Name:        rt.name,
			Path:        strings.TrimSuffix(rt.path, "{$}"),
			Methods:     methods,
			Description: rt.description,
		})
	}
	return infos
}

// InvalidRoute is the catalog text for an entry that cannot be described
func InvalidRoute(name string) string {
	return fmt.Sprintf("(%s) INVALID ROUTE DEFINITION!!!", name)
}

// describeRoutes renders the catalog as {path: "methods\ndescription"} entries.
// An entry without methods or description is replaced by a placeholder.
func describeRoutes(infos []models.RouteInfo, logger *logrus.Entry) []map[string]string {
	data := make([]map[string]string, 0, len(infos))
	for _, info := range infos {
		if len(info.Methods) == 0 || info.Description == "" {
			logger.WithFields(logrus.Fields{
				"route":    info.Path,
				"endpoint": info.Name,
			}).Error("invalid route definition")
			data = append(data, map[string]string{info.Path: InvalidRoute(info.Name)})
			continue
		}
		data = append(data, map[string]string{
			info.Path: fmt.Sprintf("%s\n%s", strings.Join(info.Methods, ","), info.Description),
		})
	}
	return data
}
