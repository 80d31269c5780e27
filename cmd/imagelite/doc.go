// Command imagelite renders resized images into a deterministic on-disk
// cache and reports on it.
//
// Usage:
//
//	imagelite [global options] resize [options] FILE...
//	imagelite [global options] probe FILE...
//	imagelite [global options] key [options] FILE...
//	imagelite [global options] stats
//
// resize renders every file concurrently (IMAGELITE_WORKERS or --workers
// bounds the pool) and prints one row per file with its artifact URI.
// Fresh artifacts are reused unless --force is given. --out writes a
// single file to a custom destination instead of the cache.
//
// probe prints format, size and memory budget status. key resolves the
// transform and prints the cache path without decoding any pixels. stats
// summarises the SQLite manifest.
//
// Every global option can also be set through the environment variable
// listed in its help text; flags win over the environment. Output is a
// table on a terminal and JSON lines otherwise; --output forces either.
//
// Examples:
//
//	IMAGELITE_CACHE_DIR=/srv/www/cache imagelite resize -W 250 photos/*.jpg
//	imagelite --cache-dir ./cache resize -s crop-to-fit -W 120 -H 120 --sharpen 20 avatar.png
//	imagelite resize -s letterbox -W 400 -H 400 --bg ffffff --out thumbs/a.jpg --create-path a.jpg
//	imagelite --manifest ./manifest.db stats
package main
