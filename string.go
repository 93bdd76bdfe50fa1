// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package graphwire

import (
	"reflect"
)

// stringSerializer writes an int32 byte length and the UTF-8 bytes. Strings
// are tracked, so a string shared by several positions is written once and
// read back as one allocation.
type stringSerializer struct{}

func (s stringSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (s stringSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	ctx.writer.WriteString(value.String())
	return nil
}

func (s stringSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	target.SetString(ctx.reader.ReadString())
	return nil
}
