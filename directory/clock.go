package directory

import "time"

// now is swappable in tests.
var now = time.Now
