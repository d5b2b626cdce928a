package export

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to the CRM.
const HTTPRequestTimeout = 60 * time.Second
