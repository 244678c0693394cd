// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package weathermat reads temperature and humidity sensors wired to the GPIO
// header of a single board computer.
//
// The dht and sht1x packages are the device drivers. binding exposes them as
// numeric functions returning a status code, script makes those functions
// available to interpreted Go, and monitor polls sensors continuously.
package weathermat
