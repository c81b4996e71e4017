package register

import (
	_ "github.com/xxxsen/dsdav/objstore/badger"
	_ "github.com/xxxsen/dsdav/objstore/local"
	_ "github.com/xxxsen/dsdav/objstore/mem"
	_ "github.com/xxxsen/dsdav/objstore/s3"
	_ "github.com/xxxsen/dsdav/objstore/sqlite"
)
